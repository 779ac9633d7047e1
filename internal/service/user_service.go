package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/repository"
)

// UserService exposes profile and role management.
type UserService interface {
	Profile(ctx context.Context, identity Identity) (dto.UserProfileResponse, error)
	UpdateUsername(ctx context.Context, identity Identity, payload dto.UpdateUsernameRequest) (dto.UserProfileResponse, error)
	Options(ctx context.Context, identity Identity) ([]dto.UserOption, error)
	UpdateRole(ctx context.Context, identity Identity, payload dto.UpdateRoleRequest) (dto.UserProfileResponse, error)
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		activity:  activity,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Profile(ctx context.Context, identity Identity) (dto.UserProfileResponse, error) {
	user, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		return dto.UserProfileResponse{}, err
	}
	return dto.NewUserProfileResponse(user), nil
}

func (s *userService) UpdateUsername(ctx context.Context, identity Identity, payload dto.UpdateUsernameRequest) (dto.UserProfileResponse, error) {
	payload.Username = strings.TrimSpace(s.sanitizer.Sanitize(payload.Username))
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserProfileResponse{}, validationFailure(err)
	}

	user, err := resolveRequester(ctx, s.users, identity)
	if err != nil {
		return dto.UserProfileResponse{}, err
	}

	updated, err := s.users.UpdateUsername(ctx, user.ID, payload.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserProfileResponse{}, notFound("user")
		}
		return dto.UserProfileResponse{}, storeFailure(err)
	}
	return dto.NewUserProfileResponse(updated), nil
}

// Options lists every user as an examiner picker entry.
func (s *userService) Options(ctx context.Context, identity Identity) ([]dto.UserOption, error) {
	if !identity.Authenticated() {
		return nil, ErrUnauthorized
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}

	options := make([]dto.UserOption, 0, len(users))
	for _, user := range users {
		options = append(options, dto.NewUserOption(user))
	}
	return options, nil
}

func (s *userService) UpdateRole(ctx context.Context, identity Identity, payload dto.UpdateRoleRequest) (dto.UserProfileResponse, error) {
	if err := requireAdmin(identity); err != nil {
		return dto.UserProfileResponse{}, err
	}
	payload.Email = strings.TrimSpace(payload.Email)
	payload.Role = strings.ToLower(strings.TrimSpace(payload.Role))
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserProfileResponse{}, validationFailure(err)
	}

	updated, err := s.users.UpdateRole(ctx, payload.Email, payload.Role)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserProfileResponse{}, notFound("user")
		}
		return dto.UserProfileResponse{}, storeFailure(err)
	}

	s.logger.Info().Uint("user_id", updated.ID).Str("role", updated.Role).Msg("user role changed")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     "user.role_changed",
		EntityType: "user",
		EntityID:   &updated.ID,
		Metadata:   map[string]interface{}{"email": updated.Email, "role": updated.Role},
	})
	return dto.NewUserProfileResponse(updated), nil
}
