// Package policy decides whether a subject may act on a resource.
// Every function is pure: callers load the records and pass them in.
package policy

import (
	"github.com/google/uuid"

	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
)

// Action is an operation on a job application.
type Action int

const (
	ActionRead Action = iota
	ActionUpdate
	ActionDelete
	// ActionReview covers the recruiter decision fields only.
	ActionReview
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionReview:
		return "review"
	}
	return "unknown"
}

// Subject is the authenticated caller as reconstructed from token claims.
type Subject struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

// Anonymous reports whether the subject carries no identity.
func (s Subject) Anonymous() bool {
	return s.UserID == uuid.Nil
}

// HasRole reports whether the subject holds role.
func (s Subject) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the subject holds the Admin role.
func (s Subject) IsAdmin() bool {
	return s.HasRole(model.RoleAdmin)
}

// RequireAuthenticated denies anonymous subjects.
func RequireAuthenticated(s Subject) error {
	if s.Anonymous() {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// RequireRole allows subjects holding role.
func RequireRole(s Subject, role string) error {
	if err := RequireAuthenticated(s); err != nil {
		return err
	}
	if !s.HasRole(role) {
		return apperrors.ErrForbidden
	}
	return nil
}

// RequireSelfOrAdmin allows the user identified by userID and any admin.
func RequireSelfOrAdmin(s Subject, userID uuid.UUID) error {
	if err := RequireAuthenticated(s); err != nil {
		return err
	}
	if s.UserID == userID || s.IsAdmin() {
		return nil
	}
	return apperrors.ErrForbidden
}

// ownsPosting reports whether s is the recruiter of posting.
func ownsPosting(s Subject, posting *model.JobPosting) bool {
	return posting != nil && s.HasRole(model.RoleRecruiter) && posting.RecruiterID == s.UserID
}

// CanReadApplication allows the owner, an admin, and the recruiter who owns
// the linked posting.
func CanReadApplication(s Subject, app *model.JobApplication, posting *model.JobPosting) bool {
	if app == nil || s.Anonymous() {
		return false
	}
	if app.UserID == s.UserID || s.IsAdmin() {
		return true
	}
	return linked(app, posting) && ownsPosting(s, posting)
}

// CanModifyApplication allows the owner or an admin to change or delete the
// applicant-controlled fields.
func CanModifyApplication(s Subject, app *model.JobApplication) bool {
	if app == nil || s.Anonymous() {
		return false
	}
	return app.UserID == s.UserID || s.IsAdmin()
}

// CanReviewApplication allows the recruiter of the linked posting or an admin
// to set the recruiter decision fields.
func CanReviewApplication(s Subject, app *model.JobApplication, posting *model.JobPosting) bool {
	if app == nil || s.Anonymous() {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	return linked(app, posting) && ownsPosting(s, posting)
}

// CanManagePosting allows the owning recruiter or an admin.
func CanManagePosting(s Subject, posting *model.JobPosting) bool {
	if posting == nil || s.Anonymous() {
		return false
	}
	return s.IsAdmin() || ownsPosting(s, posting)
}

// AuthorizeApplication evaluates action against app. A nil app is a denial
// for non-admins so that missing and foreign records look the same; admins
// get ErrNotFound.
func AuthorizeApplication(s Subject, app *model.JobApplication, posting *model.JobPosting, action Action) error {
	if err := RequireAuthenticated(s); err != nil {
		return err
	}
	if app == nil {
		if s.IsAdmin() {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrForbidden
	}

	var ok bool
	switch action {
	case ActionRead:
		ok = CanReadApplication(s, app, posting)
	case ActionUpdate, ActionDelete:
		ok = CanModifyApplication(s, app)
	case ActionReview:
		ok = CanReviewApplication(s, app, posting)
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}

// EnsureNotLastAdmin rejects removing admin rights from target when target
// is the only remaining admin.
func EnsureNotLastAdmin(adminIDs []uuid.UUID, target uuid.UUID) error {
	if len(adminIDs) == 1 && adminIDs[0] == target {
		return apperrors.ErrLastAdmin
	}
	return nil
}

func linked(app *model.JobApplication, posting *model.JobPosting) bool {
	return app.JobPostingID != nil && posting != nil && *app.JobPostingID == posting.ID
}
