package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/phybench-api/internal/models"
	"github.com/noah-isme/phybench-api/internal/repository"
)

// Identity is the authenticated requester as asserted by the session token.
// Role claims are trusted as given.
type Identity struct {
	ID    uint
	Email string
	Role  string
}

// Authenticated reports whether the identity names anyone at all.
func (i Identity) Authenticated() bool {
	return i.ID != 0 || strings.TrimSpace(i.Email) != ""
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(i.Role), models.RoleAdmin)
}

// CanReview reports whether the identity may review the problem: admins may review
// anything, everyone else only problems whose examiner set contains them.
func CanReview(identity Identity, problem models.Problem) bool {
	if identity.IsAdmin() {
		return true
	}
	if identity.ID != 0 && problem.HasExaminer(identity.ID) {
		return true
	}
	if email := strings.TrimSpace(identity.Email); email != "" {
		for _, examiner := range problem.Examiners {
			if strings.EqualFold(examiner.Email, email) {
				return true
			}
		}
	}
	return false
}

// CanManage reports whether the identity owns the problem or is an admin.
func CanManage(identity Identity, problem models.Problem) bool {
	return identity.IsAdmin() || (identity.ID != 0 && identity.ID == problem.UserID)
}

// CanView reports whether the identity may read the full problem.
func CanView(identity Identity, problem models.Problem) bool {
	if CanManage(identity, problem) || CanReview(identity, problem) {
		return true
	}
	return identity.ID != 0 && problem.OffererID != nil && *problem.OffererID == identity.ID
}

// resolveRequester loads the user record behind an identity, preferring the id claim.
func resolveRequester(ctx context.Context, users repository.UserRepository, identity Identity) (models.User, error) {
	if !identity.Authenticated() {
		return models.User{}, ErrUnauthorized
	}

	var (
		user models.User
		err  error
	)
	if identity.ID != 0 {
		user, err = users.GetByID(ctx, identity.ID)
	} else {
		user, err = users.GetByEmail(ctx, strings.TrimSpace(identity.Email))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, notFound("user")
		}
		return models.User{}, storeFailure(err)
	}
	return user, nil
}

// withUser returns the identity bound to the stored user's id and email, keeping the role claim.
func (i Identity) withUser(user models.User) Identity {
	return Identity{ID: user.ID, Email: user.Email, Role: i.Role}
}
