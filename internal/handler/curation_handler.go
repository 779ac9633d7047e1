package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// CurationHandler accepts bulk translation and AI annotation uploads.
type CurationHandler struct {
	service service.CurationService
	logger  zerolog.Logger
}

// NewCurationHandler constructs the handler.
func NewCurationHandler(service service.CurationService, logger zerolog.Logger) *CurationHandler {
	return &CurationHandler{
		service: service,
		logger:  logger.With().Str("component", "curation_handler").Logger(),
	}
}

// Register attaches upload routes to the admin group.
func (h *CurationHandler) Register(router fiber.Router) {
	router.Post("/translations", h.uploadTranslations)
	router.Post("/ai-performances", h.uploadAIPerformances)
}

func (h *CurationHandler) uploadTranslations(c *fiber.Ctx) error {
	var payload dto.TranslationUploadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.service.UploadTranslations(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "upload translations")
	}
	return utils.SendSuccess(c, "translations processed", summary)
}

func (h *CurationHandler) uploadAIPerformances(c *fiber.Ctx) error {
	var payload dto.AIPerformanceUploadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.service.UploadAIPerformances(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "upload ai performances")
	}
	return utils.SendSuccess(c, "ai performances processed", summary)
}
