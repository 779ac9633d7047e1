package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// ScoreHandler exposes ledger maintenance.
type ScoreHandler struct {
	service service.ScoreService
	logger  zerolog.Logger
}

// NewScoreHandler constructs the handler.
func NewScoreHandler(service service.ScoreService, logger zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{
		service: service,
		logger:  logger.With().Str("component", "score_handler").Logger(),
	}
}

// Register attaches score routes.
func (h *ScoreHandler) Register(router fiber.Router) {
	router.Post("/recalculate", h.recalculate)
}

func (h *ScoreHandler) recalculate(c *fiber.Ctx) error {
	var payload dto.RecalculateScoresRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	result, err := h.service.Recalculate(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "recalculate scores")
	}
	return utils.SendSuccess(c, "scores recalculated", result)
}
