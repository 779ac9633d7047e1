package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// ReviewHandler accepts examiner decisions.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the review route. The group prefix must carry the :id parameter.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Patch("", h.review)
}

func (h *ReviewHandler) review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Review(c.UserContext(), identityFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "review problem")
	}

	requestLogger(h.logger, c).Info().
		Uint("problem_id", id).
		Str("previous_status", string(result.PreviousStatus)).
		Str("status", string(result.Problem.Status)).
		Int("awards", len(result.Awards)).
		Msg("problem reviewed")

	return utils.SendSuccess(c, "problem reviewed", result)
}
