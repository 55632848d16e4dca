package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
)

func TestRoleService_EnsureRolesCreatedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.roles.EnsureRolesCreated(ctx))
	roles, err := env.store.Roles().List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, len(model.BuiltinRoles))
}

func TestRoleService_EnsureDefaultRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "user@example.com", "secret1")

	for i := 0; i < 3; i++ {
		roles, err := env.roles.EnsureDefaultRole(ctx, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, []string{model.RoleUser}, roles)
	}
	names, err := env.store.Users().RoleNames(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleUser}, names)
}

func TestRoleService_AssignAndRemove(t *testing.T) {
	tests := []struct {
		name    string
		run     func(env *testEnv, target model.User) error
		wantErr error
	}{
		{
			name: "assign twice is a no-op",
			run: func(env *testEnv, target model.User) error {
				if err := env.roles.AssignRole(context.Background(), target.ID, model.RoleRecruiter); err != nil {
					return err
				}
				return env.roles.AssignRole(context.Background(), target.ID, model.RoleRecruiter)
			},
		},
		{
			name: "unknown role",
			run: func(env *testEnv, target model.User) error {
				return env.roles.AssignRole(context.Background(), target.ID, "Astronaut")
			},
			wantErr: apperrors.ErrRoleNotFound,
		},
		{
			name: "remove role not held",
			run: func(env *testEnv, target model.User) error {
				return env.roles.RemoveRole(context.Background(), target.ID, model.RoleRecruiter)
			},
			wantErr: apperrors.ErrNotInRole,
		},
		{
			name: "remove only admin",
			run: func(env *testEnv, target model.User) error {
				if err := env.roles.AssignRole(context.Background(), target.ID, model.RoleAdmin); err != nil {
					return err
				}
				return env.roles.RemoveRole(context.Background(), target.ID, model.RoleAdmin)
			},
			wantErr: apperrors.ErrLastAdmin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			s := env.newUser(t, "target@example.com", "secret1")
			err := tt.run(env, model.User{ID: s.UserID})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRoleService_RemoveAdminWhenAnotherRemains(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.newUser(t, "first@example.com", "secret1", model.RoleAdmin)
	env.newUser(t, "second@example.com", "secret1", model.RoleAdmin)

	require.NoError(t, env.roles.RemoveRole(ctx, first.UserID, model.RoleAdmin))
	roles, err := env.roles.UserRoles(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleUser}, roles)
}

func TestRoleService_CustomRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	role, err := env.roles.CreateRole(ctx, "Reviewer")
	require.NoError(t, err)
	assert.Equal(t, "Reviewer", role.Name)

	_, err = env.roles.CreateRole(ctx, "Reviewer")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	user := env.newUser(t, "member@example.com", "secret1", "Reviewer")
	assert.ErrorIs(t, env.roles.DeleteRole(ctx, "Reviewer"), apperrors.ErrRoleInUse)

	require.NoError(t, env.roles.RemoveRole(ctx, user.UserID, "Reviewer"))
	require.NoError(t, env.roles.DeleteRole(ctx, "Reviewer"))

	assert.ErrorIs(t, env.roles.DeleteRole(ctx, model.RoleUser), apperrors.ErrRoleInUse)
	assert.ErrorIs(t, env.roles.DeleteRole(ctx, "Reviewer"), apperrors.ErrRoleNotFound)
}

func TestRoleService_BootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.roles.BootstrapAdmin(ctx, "", ""))
	require.NoError(t, env.roles.BootstrapAdmin(ctx, "root@example.com", "rootpass"))
	require.NoError(t, env.roles.BootstrapAdmin(ctx, "root@example.com", "rootpass"))

	user, err := env.store.Users().FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, user.EmailConfirmed)
	roles, err := env.roles.UserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleAdmin, model.RoleUser}, roles)

	res, err := env.auth.Login(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Contains(t, res.Roles, model.RoleAdmin)
}
