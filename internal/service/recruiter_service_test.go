package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/queue"
	"jobtracker/internal/repository"
)

func recruiterInput() RecruiterApplicationInput {
	return RecruiterApplicationInput{
		CompanyName:    "Acme",
		CompanyWebsite: "https://acme.example.com",
		JobTitle:       "Talent Lead",
		Motivation:     "We are hiring.",
	}
}

func TestRecruiterService_Submit(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, env *testEnv, user policy.Subject)
		input   RecruiterApplicationInput
		wantErr error
	}{
		{
			name:  "first application is pending",
			setup: func(*testing.T, *testEnv, policy.Subject) {},
			input: recruiterInput(),
		},
		{
			name:    "missing fields",
			setup:   func(*testing.T, *testEnv, policy.Subject) {},
			input:   RecruiterApplicationInput{CompanyName: "Acme"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name: "second pending application",
			setup: func(t *testing.T, env *testEnv, user policy.Subject) {
				_, err := env.recruiters.Submit(context.Background(), user, recruiterInput())
				require.NoError(t, err)
			},
			input:   recruiterInput(),
			wantErr: apperrors.ErrPendingRecruiterApplication,
		},
		{
			name: "already a recruiter",
			setup: func(t *testing.T, env *testEnv, user policy.Subject) {
				require.NoError(t, env.roles.AssignRole(context.Background(), user.UserID, model.RoleRecruiter))
			},
			input:   recruiterInput(),
			wantErr: apperrors.ErrAlreadyRecruiter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.newUser(t, "applicant@example.com", "secret1")
			tt.setup(t, env, user)

			app, err := env.recruiters.Submit(context.Background(), user, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, app)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.RecruiterApplicationPending, app.Status)
			assert.Equal(t, env.now, app.ApplicationDate)
		})
	}
}

func TestRecruiterService_ResubmitAfterRejection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.newUser(t, "admin@example.com", "secret1", model.RoleAdmin)
	user := env.newUser(t, "applicant@example.com", "secret1")

	first, err := env.recruiters.Submit(ctx, user, recruiterInput())
	require.NoError(t, err)
	_, err = env.recruiters.Reject(ctx, admin, first.ID, "Company could not be verified")
	require.NoError(t, err)

	second, err := env.recruiters.Submit(ctx, user, recruiterInput())
	require.NoError(t, err)

	mine, err := env.recruiters.MyApplication(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, second.ID, mine.ID)
}

func TestRecruiterService_Approve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.newUser(t, "admin@example.com", "secret1", model.RoleAdmin)
	user := env.newUser(t, "applicant@example.com", "secret1")

	app, err := env.recruiters.Submit(ctx, user, recruiterInput())
	require.NoError(t, err)

	_, err = env.recruiters.Approve(ctx, user, app.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	approved, err := env.recruiters.Approve(ctx, admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecruiterApplicationApproved, approved.Status)
	require.NotNil(t, approved.ReviewedByUserID)
	assert.Equal(t, admin.UserID, *approved.ReviewedByUserID)
	require.NotNil(t, approved.ReviewDate)

	roles, err := env.roles.UserRoles(ctx, user.UserID)
	require.NoError(t, err)
	assert.Contains(t, roles, model.RoleRecruiter)

	_, err = env.recruiters.Approve(ctx, admin, app.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = env.recruiters.Reject(ctx, admin, app.ID, "too late")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	assert.Contains(t, env.events.types(), queue.EventRecruiterApplicationApproved)
}

func TestRecruiterService_ApproveRollsBackWhenRoleGrantFails(t *testing.T) {
	faulty := &faultyStore{}
	env := newTestEnvWithStore(t, func(s repository.Store) repository.Store {
		faulty.Store = s
		return faulty
	})
	ctx := context.Background()
	admin := env.newUser(t, "admin@example.com", "secret1", model.RoleAdmin)
	user := env.newUser(t, "applicant@example.com", "secret1")
	app, err := env.recruiters.Submit(ctx, user, recruiterInput())
	require.NoError(t, err)

	faulty.failAddRole = true
	_, err = env.recruiters.Approve(ctx, admin, app.ID)
	require.ErrorIs(t, err, errInjected)

	stored, err := env.recruiters.Get(ctx, admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecruiterApplicationPending, stored.Status)
	assert.Nil(t, stored.ReviewedByUserID)

	roles, err := env.roles.UserRoles(ctx, user.UserID)
	require.NoError(t, err)
	assert.NotContains(t, roles, model.RoleRecruiter)
	assert.Empty(t, env.events.types())
}

func TestRecruiterService_Reject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.newUser(t, "admin@example.com", "secret1", model.RoleAdmin)
	user := env.newUser(t, "applicant@example.com", "secret1")
	app, err := env.recruiters.Submit(ctx, user, recruiterInput())
	require.NoError(t, err)

	_, err = env.recruiters.Reject(ctx, admin, app.ID, "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	rejected, err := env.recruiters.Reject(ctx, admin, app.ID, "Not a company domain")
	require.NoError(t, err)
	assert.Equal(t, model.RecruiterApplicationRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Not a company domain", *rejected.RejectionReason)

	roles, err := env.roles.UserRoles(ctx, user.UserID)
	require.NoError(t, err)
	assert.NotContains(t, roles, model.RoleRecruiter)
}

func TestRecruiterService_GetHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.newUser(t, "admin@example.com", "secret1", model.RoleAdmin)
	owner := env.newUser(t, "owner@example.com", "secret1")
	other := env.newUser(t, "other@example.com", "secret1")
	app, err := env.recruiters.Submit(ctx, owner, recruiterInput())
	require.NoError(t, err)

	_, err = env.recruiters.Get(ctx, owner, app.ID)
	assert.NoError(t, err)

	_, err = env.recruiters.Get(ctx, other, app.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = env.recruiters.Get(ctx, other, app.ID+100)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.recruiters.Get(ctx, admin, app.ID+100)
	assert.ErrorIs(t, err, apperrors.ErrRecruiterApplicationNotFound)

	_, err = env.recruiters.List(ctx, owner, true)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	pending, err := env.recruiters.List(ctx, admin, true)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRecruiterService_MyApplicationNone(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com", "secret1")
	_, err := env.recruiters.MyApplication(context.Background(), user)
	assert.ErrorIs(t, err, apperrors.ErrRecruiterApplicationNotFound)
}
