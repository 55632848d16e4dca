package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
)

func strPtr(s string) *string { return &s }

func TestProfileService_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "user@example.com", "secret1")
	env.newUser(t, "taken@example.com", "secret1")

	_, err := env.jobs.Create(ctx, user, JobApplicationInput{CompanyName: "Globex", Position: "Engineer"})
	require.NoError(t, err)

	profile, err := env.profiles.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", profile.Email)
	assert.Equal(t, []string{model.RoleUser}, profile.Roles)
	assert.Equal(t, int64(1), profile.ApplicationCount)

	_, err = env.profiles.UpdateProfile(ctx, user, UpdateProfileInput{UserName: strPtr("TAKEN@example.com")})
	assert.ErrorIs(t, err, apperrors.ErrUserNameTaken)
	_, err = env.profiles.UpdateProfile(ctx, user, UpdateProfileInput{UserName: strPtr("  ")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	u, err := env.store.Users().FindByID(ctx, user.UserID)
	require.NoError(t, err)
	u.PhoneNumber = "+100"
	u.PhoneNumberConfirmed = true
	require.NoError(t, env.store.Users().Update(ctx, u))

	profile, err = env.profiles.UpdateProfile(ctx, user, UpdateProfileInput{UserName: strPtr("jobseeker"), PhoneNumber: strPtr("+200")})
	require.NoError(t, err)
	assert.Equal(t, "jobseeker", profile.UserName)
	assert.Equal(t, "+200", profile.PhoneNumber)
	assert.False(t, profile.PhoneNumberConfirmed)

	_, err = env.profiles.GetProfile(ctx, policy.Subject{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestProfileService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "user@example.com", "secret1")

	assert.ErrorIs(t, env.profiles.ChangePassword(ctx, user, "wrong", "changed1"), apperrors.ErrIncorrectPassword)
	assert.ErrorIs(t, env.profiles.ChangePassword(ctx, user, "secret1", "short"), apperrors.ErrValidation)
	require.NoError(t, env.profiles.ChangePassword(ctx, user, "secret1", "changed1"))

	_, err := env.auth.Login(ctx, "user@example.com", "changed1")
	assert.NoError(t, err)
}

func TestProfileService_ExternalAccountSetsFirstPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.auth.ExternalLogin(ctx, "google@example.com", "")
	require.NoError(t, err)
	subject := env.subject(t, res.User.ID)

	assert.ErrorIs(t, env.profiles.DeleteAccount(ctx, subject, ""), apperrors.ErrIncorrectPassword)
	require.NoError(t, env.profiles.ChangePassword(ctx, subject, "", "first-password"))
	require.NoError(t, env.profiles.DeleteAccount(ctx, subject, "first-password"))
}

func TestProfileService_ChangeEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "old@example.com", "secret1")
	env.newUser(t, "taken@example.com", "secret1")

	assert.ErrorIs(t, env.profiles.ChangeEmail(ctx, user, "new@example.com", "wrong"), apperrors.ErrIncorrectPassword)
	assert.ErrorIs(t, env.profiles.ChangeEmail(ctx, user, "taken@example.com", "secret1"), apperrors.ErrEmailTaken)
	assert.ErrorIs(t, env.profiles.ChangeEmail(ctx, user, "OLD@example.com", "secret1"), apperrors.ErrValidation)

	require.NoError(t, env.profiles.ChangeEmail(ctx, user, "new@example.com", "secret1"))
	token := env.outbox.lastToken(t, "new@example.com")

	require.NoError(t, env.profiles.ConfirmEmailChange(ctx, token))
	assert.ErrorIs(t, env.profiles.ConfirmEmailChange(ctx, token), apperrors.ErrInvalidToken)

	profile, err := env.profiles.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", profile.Email)
	assert.Equal(t, "new@example.com", profile.UserName)
	assert.True(t, profile.EmailConfirmed)

	_, err = env.auth.Login(ctx, "new@example.com", "secret1")
	assert.NoError(t, err)
	_, err = env.auth.Login(ctx, "old@example.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
