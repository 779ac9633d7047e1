package dto

import (
	"time"

	"github.com/noah-isme/phybench-api/internal/models"
)

// UpdateUsernameRequest changes the requester's display username.
type UpdateUsernameRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
}

// UpdateRoleRequest lets an admin promote or demote a user.
type UpdateRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=user admin"`
}

// UserOption is a select-box entry used when assigning examiners.
type UserOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UserProfileResponse serializes the requester's own profile.
type UserProfileResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Realname  string    `json:"realname"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserProfileResponse converts a user model into a profile DTO.
func NewUserProfileResponse(user models.User) UserProfileResponse {
	return UserProfileResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Realname:  user.Realname,
		Username:  user.Username,
		Role:      user.Role,
		Score:     user.Score,
		CreatedAt: user.CreatedAt,
	}
}

// NewUserOption renders a user as "name (realname)" keyed by email.
func NewUserOption(user models.User) UserOption {
	return UserOption{
		Label: user.Name + " (" + user.Realname + ")",
		Value: user.Email,
	}
}
