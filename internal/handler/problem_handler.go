package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// ProblemHandler exposes the problem catalogue.
type ProblemHandler struct {
	service service.ProblemService
	logger  zerolog.Logger
}

// NewProblemHandler constructs the handler.
func NewProblemHandler(service service.ProblemService, logger zerolog.Logger) *ProblemHandler {
	return &ProblemHandler{
		service: service,
		logger:  logger.With().Str("component", "problem_handler").Logger(),
	}
}

// Register attaches problem routes to the router group.
func (h *ProblemHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.submit)
	router.Get("/:id", h.get)
	router.Delete("/:id", h.delete)
}

// RegisterAdmin attaches admin-only problem routes.
func (h *ProblemHandler) RegisterAdmin(router fiber.Router) {
	router.Put("/:id/examiners", h.assignExaminers)
}

func (h *ProblemHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	perPage, err := parseQueryInt(c, "per_page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid per_page")
	}
	exam, err := parseQueryBool(c, "exam")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exam flag")
	}

	response, err := h.service.List(c.UserContext(), identityFromContext(c), dto.ProblemListRequest{
		Page:     page,
		PageSize: perPage,
		Exam:     exam,
	})
	if err != nil {
		return sendServiceError(c, h.logger, err, "list problems")
	}

	return utils.OK(c, response.Items, "problems retrieved", response.Pagination)
}

func (h *ProblemHandler) submit(c *fiber.Ctx) error {
	var payload dto.ProblemCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	problem, err := h.service.Submit(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "submit problem")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "problem submitted", problem)
}

func (h *ProblemHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	problem, err := h.service.Get(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "load problem")
	}

	return utils.SendSuccess(c, "problem retrieved", problem)
}

func (h *ProblemHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.UserContext(), identityFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "delete problem")
	}

	return utils.SendSuccess(c, "problem deleted", fiber.Map{"id": id})
}

func (h *ProblemHandler) assignExaminers(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AssignExaminersRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	problem, err := h.service.AssignExaminers(c.UserContext(), identityFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "assign examiners")
	}

	return utils.SendSuccess(c, "examiners assigned", problem)
}
