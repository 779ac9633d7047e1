package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/service"
	"github.com/noah-isme/phybench-api/internal/utils"
)

// UserHandler exposes profile, directory and role endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// RegisterSelf attaches the requester's own profile routes.
func (h *UserHandler) RegisterSelf(router fiber.Router) {
	router.Get("", h.profile)
	router.Patch("/username", h.updateUsername)
}

// RegisterDirectory attaches user lookup routes.
func (h *UserHandler) RegisterDirectory(router fiber.Router) {
	router.Get("/options", h.options)
}

// RegisterAdmin attaches admin-only user management routes.
func (h *UserHandler) RegisterAdmin(router fiber.Router) {
	router.Patch("/role", h.updateRole)
}

func (h *UserHandler) profile(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.UserContext(), identityFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *UserHandler) updateUsername(c *fiber.Ctx) error {
	var payload dto.UpdateUsernameRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	profile, err := h.service.UpdateUsername(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update username")
	}
	return utils.SendSuccess(c, "username updated", profile)
}

func (h *UserHandler) options(c *fiber.Ctx) error {
	options, err := h.service.Options(c.UserContext(), identityFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "list users")
	}
	return utils.SendSuccess(c, "user options", options)
}

func (h *UserHandler) updateRole(c *fiber.Ctx) error {
	var payload dto.UpdateRoleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	profile, err := h.service.UpdateRole(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "update role")
	}
	return utils.SendSuccess(c, "role updated", profile)
}
