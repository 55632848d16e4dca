package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
)

func uintPtr(v uint) *uint { return &v }

func TestRequireSelfOrAdmin(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	tests := []struct {
		name          string
		subject       Subject
		target        uuid.UUID
		expectedError error
	}{
		{"self", Subject{UserID: self, Roles: []string{model.RoleUser}}, self, nil},
		{"admin on other", Subject{UserID: other, Roles: []string{model.RoleAdmin}}, self, nil},
		{"user on other", Subject{UserID: other, Roles: []string{model.RoleUser}}, self, apperrors.ErrForbidden},
		{"recruiter on other", Subject{UserID: other, Roles: []string{model.RoleRecruiter}}, self, apperrors.ErrForbidden},
		{"anonymous", Subject{}, self, apperrors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireSelfOrAdmin(tt.subject, tt.target)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	id := uuid.New()
	assert.NoError(t, RequireRole(Subject{UserID: id, Roles: []string{model.RoleRecruiter}}, model.RoleRecruiter))
	assert.ErrorIs(t, RequireRole(Subject{UserID: id, Roles: []string{model.RoleUser}}, model.RoleRecruiter), apperrors.ErrForbidden)
	assert.ErrorIs(t, RequireRole(Subject{UserID: id}, model.RoleAdmin), apperrors.ErrForbidden)
	assert.ErrorIs(t, RequireRole(Subject{}, model.RoleAdmin), apperrors.ErrUnauthorized)
}

func TestAuthorizeApplication(t *testing.T) {
	owner := uuid.New()
	recruiter := uuid.New()
	stranger := uuid.New()
	otherRecruiter := uuid.New()
	admin := uuid.New()

	posting := &model.JobPosting{ID: 7, RecruiterID: recruiter}
	otherPosting := &model.JobPosting{ID: 8, RecruiterID: otherRecruiter}
	linkedApp := &model.JobApplication{ID: 1, UserID: owner, JobPostingID: uintPtr(7)}
	manualApp := &model.JobApplication{ID: 2, UserID: owner}

	ownerS := Subject{UserID: owner, Roles: []string{model.RoleUser}}
	recruiterS := Subject{UserID: recruiter, Roles: []string{model.RoleUser, model.RoleRecruiter}}
	otherRecruiterS := Subject{UserID: otherRecruiter, Roles: []string{model.RoleRecruiter}}
	strangerS := Subject{UserID: stranger, Roles: []string{model.RoleUser}}
	adminS := Subject{UserID: admin, Roles: []string{model.RoleAdmin}}

	tests := []struct {
		name          string
		subject       Subject
		app           *model.JobApplication
		posting       *model.JobPosting
		action        Action
		expectedError error
	}{
		{"owner reads", ownerS, linkedApp, posting, ActionRead, nil},
		{"owner updates", ownerS, linkedApp, posting, ActionUpdate, nil},
		{"owner deletes", ownerS, manualApp, nil, ActionDelete, nil},
		{"owner cannot review", ownerS, linkedApp, posting, ActionReview, apperrors.ErrForbidden},
		{"posting recruiter reads", recruiterS, linkedApp, posting, ActionRead, nil},
		{"posting recruiter reviews", recruiterS, linkedApp, posting, ActionReview, nil},
		{"posting recruiter cannot update", recruiterS, linkedApp, posting, ActionUpdate, apperrors.ErrForbidden},
		{"posting recruiter cannot delete", recruiterS, linkedApp, posting, ActionDelete, apperrors.ErrForbidden},
		{"other recruiter denied", otherRecruiterS, linkedApp, posting, ActionRead, apperrors.ErrForbidden},
		{"mismatched posting denied", otherRecruiterS, linkedApp, otherPosting, ActionReview, apperrors.ErrForbidden},
		{"recruiter on manual app denied", recruiterS, manualApp, nil, ActionRead, apperrors.ErrForbidden},
		{"stranger read denied", strangerS, linkedApp, posting, ActionRead, apperrors.ErrForbidden},
		{"stranger update denied", strangerS, linkedApp, posting, ActionUpdate, apperrors.ErrForbidden},
		{"stranger delete denied", strangerS, linkedApp, posting, ActionDelete, apperrors.ErrForbidden},
		{"admin reads", adminS, linkedApp, posting, ActionRead, nil},
		{"admin deletes", adminS, linkedApp, posting, ActionDelete, nil},
		{"admin reviews", adminS, linkedApp, posting, ActionReview, nil},
		{"missing for stranger is denial", strangerS, nil, nil, ActionRead, apperrors.ErrForbidden},
		{"missing for admin is not found", adminS, nil, nil, ActionRead, apperrors.ErrNotFound},
		{"anonymous", Subject{}, linkedApp, posting, ActionRead, apperrors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeApplication(tt.subject, tt.app, tt.posting, tt.action)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanManagePosting(t *testing.T) {
	recruiter := uuid.New()
	posting := &model.JobPosting{ID: 1, RecruiterID: recruiter}

	assert.True(t, CanManagePosting(Subject{UserID: recruiter, Roles: []string{model.RoleRecruiter}}, posting))
	assert.True(t, CanManagePosting(Subject{UserID: uuid.New(), Roles: []string{model.RoleAdmin}}, posting))
	assert.False(t, CanManagePosting(Subject{UserID: uuid.New(), Roles: []string{model.RoleRecruiter}}, posting))
	// Lost the Recruiter role since creating the posting.
	assert.False(t, CanManagePosting(Subject{UserID: recruiter, Roles: []string{model.RoleUser}}, posting))
	assert.False(t, CanManagePosting(Subject{UserID: recruiter, Roles: []string{model.RoleRecruiter}}, nil))
}

func TestEnsureNotLastAdmin(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.ErrorIs(t, EnsureNotLastAdmin([]uuid.UUID{a}, a), apperrors.ErrLastAdmin)
	assert.NoError(t, EnsureNotLastAdmin([]uuid.UUID{a, b}, a))
	assert.NoError(t, EnsureNotLastAdmin([]uuid.UUID{a}, b))
	assert.NoError(t, EnsureNotLastAdmin(nil, a))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "review", ActionReview.String())
	assert.Equal(t, "unknown", Action(42).String())
}
