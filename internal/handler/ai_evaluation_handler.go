package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// AIEvaluationHandler triggers model runs against a problem.
type AIEvaluationHandler struct {
	service service.AIEvaluationService
	logger  zerolog.Logger
}

// NewAIEvaluationHandler constructs the handler.
func NewAIEvaluationHandler(service service.AIEvaluationService, logger zerolog.Logger) *AIEvaluationHandler {
	return &AIEvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "ai_evaluation_handler").Logger(),
	}
}

// Register attaches the evaluation route. The group prefix must carry the :id parameter.
func (h *AIEvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.evaluate)
}

func (h *AIEvaluationHandler) evaluate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	result, err := h.service.Evaluate(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "evaluate problem")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation stored", result)
}
