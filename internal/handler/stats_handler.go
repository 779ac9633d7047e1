package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// StatsHandler serves the admin dashboard counters.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register attaches statistics routes.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("", h.summary)
	router.Get("/last-week", h.lastWeek)
}

func (h *StatsHandler) summary(c *fiber.Ctx) error {
	response, err := h.service.Summary(c.UserContext(), identityFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "load statistics")
	}
	return utils.SendSuccess(c, "problem statistics", response)
}

func (h *StatsHandler) lastWeek(c *fiber.Ctx) error {
	response, err := h.service.LastWeek(c.UserContext(), identityFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "load weekly statistics")
	}
	return utils.SendSuccess(c, "last week statistics", response)
}
