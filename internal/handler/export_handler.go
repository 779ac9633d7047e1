package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// ExportCountHeader reports how many problems an export file contains.
const ExportCountHeader = "X-Export-Count"

// ExportHandler streams filtered problem exports as JSON downloads.
type ExportHandler struct {
	service service.ExportService
	logger  zerolog.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(service service.ExportService, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger.With().Str("component", "export_handler").Logger(),
	}
}

// Register attaches the export route.
func (h *ExportHandler) Register(router fiber.Router) {
	router.Get("", h.export)
}

func (h *ExportHandler) export(c *fiber.Ctx) error {
	var req dto.ExportRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid filters")
	}
	req.Fields = splitAndTrim(c.Query("fields"))

	result, err := h.service.Export(c.UserContext(), identityFromContext(c), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "export problems")
	}

	c.Attachment(result.FileName)
	c.Set(ExportCountHeader, strconv.Itoa(result.Count))
	return c.Status(fiber.StatusOK).JSON(result.Items)
}
