package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/phybench-api/internal/dto"
	"github.com/noah-isme/phybench-api/internal/models"
)

func TestUserServiceProfileAndUsername(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "ada@example.com", models.RoleUser)
	svc := NewUserService(f.users, newValidator(), f.activity, testLogger())

	profile, err := svc.Profile(context.Background(), Identity{Email: "ada@example.com"})
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
	require.Equal(t, 0, profile.Score)

	updated, err := svc.UpdateUsername(context.Background(), identityOf(user), dto.UpdateUsernameRequest{Username: "  <em>lovelace</em> "})
	require.NoError(t, err)
	require.Equal(t, "lovelace", updated.Username)

	_, err = svc.UpdateUsername(context.Background(), identityOf(user), dto.UpdateUsernameRequest{Username: "<b></b>"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Profile(context.Background(), Identity{Email: "ghost@example.com"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserServiceOptions(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "ada@example.com", models.RoleUser)
	f.user(t, "emmy@example.com", models.RoleUser)
	svc := NewUserService(f.users, newValidator(), nil, testLogger())

	options, err := svc.Options(context.Background(), identityOf(user))
	require.NoError(t, err)
	require.Len(t, options, 2)
	require.Equal(t, dto.UserOption{Label: "ada (ADA)", Value: "ada@example.com"}, options[0])

	_, err = svc.Options(context.Background(), Identity{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserServiceUpdateRole(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	user := f.user(t, "ada@example.com", models.RoleUser)
	svc := NewUserService(f.users, newValidator(), f.activity, testLogger())

	_, err := svc.UpdateRole(context.Background(), identityOf(user), dto.UpdateRoleRequest{Email: user.Email, Role: "admin"})
	require.ErrorIs(t, err, ErrForbidden)

	promoted, err := svc.UpdateRole(context.Background(), identityOf(admin), dto.UpdateRoleRequest{Email: user.Email, Role: "ADMIN"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = svc.UpdateRole(context.Background(), identityOf(admin), dto.UpdateRoleRequest{Email: "ghost@example.com", Role: "user"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateRole(context.Background(), identityOf(admin), dto.UpdateRoleRequest{Email: user.Email, Role: "owner"})
	require.ErrorIs(t, err, ErrValidation)

	logs, err := f.activity.List(context.Background(), dto.AdminActivityListRequest{Action: "user.role_changed"})
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	require.Equal(t, "admin", logs.Items[0].Metadata["role"])
}
