package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	"jobtracker/internal/email"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/metrics"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/queue"
	"jobtracker/internal/repository"
)

// RecruiterApplicationInput is a request for the Recruiter role.
type RecruiterApplicationInput struct {
	CompanyName    string
	CompanyWebsite string
	JobTitle       string
	Motivation     string
}

// RecruiterService runs the recruiter application lifecycle:
// Pending, then exactly one of Approved or Rejected.
type RecruiterService interface {
	Submit(ctx context.Context, subject policy.Subject, in RecruiterApplicationInput) (*model.RecruiterApplication, error)
	MyApplication(ctx context.Context, subject policy.Subject) (*model.RecruiterApplication, error)
	List(ctx context.Context, subject policy.Subject, pendingOnly bool) ([]model.RecruiterApplication, error)
	Get(ctx context.Context, subject policy.Subject, id uint) (*model.RecruiterApplication, error)
	Approve(ctx context.Context, subject policy.Subject, id uint) (*model.RecruiterApplication, error)
	Reject(ctx context.Context, subject policy.Subject, id uint, reason string) (*model.RecruiterApplication, error)
}

type recruiterService struct {
	store   repository.Store
	mailer  *email.Mailer
	events  queue.Publisher
	metrics *metrics.Metrics
	now     Clock
	logger  *log.Logger
}

// NewRecruiterService creates a new recruiter service.
func NewRecruiterService(
	store repository.Store,
	mailer *email.Mailer,
	events queue.Publisher,
	m *metrics.Metrics,
	clock Clock,
) RecruiterService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &recruiterService{
		store:   store,
		mailer:  mailer,
		events:  events,
		metrics: m,
		now:     clockOrDefault(clock),
		logger:  log.New("recruiters"),
	}
}

// Submit opens a Pending application. Role membership is read from the
// database, not the token, so a freshly approved recruiter cannot reapply.
func (s *recruiterService) Submit(ctx context.Context, subject policy.Subject, in RecruiterApplicationInput) (*model.RecruiterApplication, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.CompanyWebsite = strings.TrimSpace(in.CompanyWebsite)
	in.JobTitle = strings.TrimSpace(in.JobTitle)
	in.Motivation = strings.TrimSpace(in.Motivation)
	if in.CompanyName == "" || in.CompanyWebsite == "" || in.JobTitle == "" || in.Motivation == "" {
		return nil, fmt.Errorf("%w: all fields are required", apperrors.ErrValidation)
	}

	app := &model.RecruiterApplication{
		UserID:          subject.UserID,
		CompanyName:     in.CompanyName,
		CompanyWebsite:  in.CompanyWebsite,
		JobTitle:        in.JobTitle,
		Motivation:      in.Motivation,
		ApplicationDate: s.now(),
		Status:          model.RecruiterApplicationPending,
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		roles, err := tx.Users().RoleNames(ctx, subject.UserID)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		if hasRole(roles, model.RoleRecruiter) {
			return apperrors.ErrAlreadyRecruiter
		}
		_, err = tx.RecruiterApplications().FindPendingByUser(ctx, subject.UserID)
		if err == nil {
			return apperrors.ErrPendingRecruiterApplication
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find pending application: %w", err)
		}
		if err := tx.RecruiterApplications().Create(ctx, app); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrPendingRecruiterApplication
			}
			return fmt.Errorf("create application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// MyApplication returns the caller's most recent application.
func (s *recruiterService) MyApplication(ctx context.Context, subject policy.Subject) (*model.RecruiterApplication, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	app, err := s.store.RecruiterApplications().LatestByUser(ctx, subject.UserID)
	if err != nil {
		return nil, lookup(err, apperrors.ErrRecruiterApplicationNotFound, "find application")
	}
	return app, nil
}

func (s *recruiterService) List(ctx context.Context, subject policy.Subject, pendingOnly bool) ([]model.RecruiterApplication, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	apps, err := s.store.RecruiterApplications().List(ctx, pendingOnly)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// Get returns an application to its owner or an admin. Non-admins get the
// same denial for missing and foreign records.
func (s *recruiterService) Get(ctx context.Context, subject policy.Subject, id uint) (*model.RecruiterApplication, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	app, err := s.store.RecruiterApplications().FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find application: %w", err)
		}
		if subject.IsAdmin() {
			return nil, apperrors.ErrRecruiterApplicationNotFound
		}
		return nil, apperrors.ErrForbidden
	}
	if err := policy.RequireSelfOrAdmin(subject, app.UserID); err != nil {
		return nil, err
	}
	return app, nil
}

// Approve marks the application Approved and grants the Recruiter role in
// one transaction. If the grant fails the application stays Pending.
func (s *recruiterService) Approve(ctx context.Context, subject policy.Subject, id uint) (*model.RecruiterApplication, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	var app *model.RecruiterApplication
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		app, err = s.review(ctx, tx, subject, id, model.RecruiterApplicationApproved, nil)
		if err != nil {
			return err
		}
		role, err := tx.Roles().FindByName(ctx, model.RoleRecruiter)
		if err != nil {
			return lookup(err, apperrors.ErrRoleNotFound, "find role")
		}
		roles, err := tx.Users().RoleNames(ctx, app.UserID)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		if hasRole(roles, model.RoleRecruiter) {
			return nil
		}
		if err := tx.Users().AddRole(ctx, app.UserID, role); err != nil {
			return fmt.Errorf("grant recruiter role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.decided(ctx, subject, app, queue.EventRecruiterApplicationApproved, "approved")
	return app, nil
}

// Reject marks the application Rejected. A reason is required.
func (s *recruiterService) Reject(ctx context.Context, subject policy.Subject, id uint, reason string) (*model.RecruiterApplication, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", apperrors.ErrValidation)
	}
	var app *model.RecruiterApplication
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		app, err = s.review(ctx, tx, subject, id, model.RecruiterApplicationRejected, &reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.decided(ctx, subject, app, queue.EventRecruiterApplicationRejected, "rejected")
	return app, nil
}

// review moves a Pending application to a terminal status.
func (s *recruiterService) review(
	ctx context.Context,
	tx repository.Store,
	subject policy.Subject,
	id uint,
	status model.RecruiterApplicationStatus,
	reason *string,
) (*model.RecruiterApplication, error) {
	app, err := tx.RecruiterApplications().FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, apperrors.ErrRecruiterApplicationNotFound, "find application")
	}
	if app.Status != model.RecruiterApplicationPending {
		return nil, fmt.Errorf("%w: status is %s", apperrors.ErrInvalidTransition, app.Status)
	}
	now := s.now()
	reviewer := subject.UserID
	app.Status = status
	app.ReviewedByUserID = &reviewer
	app.ReviewDate = &now
	app.RejectionReason = reason
	if err := tx.RecruiterApplications().Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

func (s *recruiterService) decided(ctx context.Context, subject policy.Subject, app *model.RecruiterApplication, ev queue.EventType, outcome string) {
	s.metrics.RecruiterDecision(outcome)
	event := queue.Event{
		Type:                   ev,
		UserID:                 app.UserID.String(),
		ActorID:                subject.UserID.String(),
		RecruiterApplicationID: app.ID,
		Status:                 string(app.Status),
	}
	if app.RejectionReason != nil {
		event.Reason = *app.RejectionReason
	}
	if err := queue.PublishEvent(ctx, s.events, event); err != nil {
		s.logger.Warnf("publish %s: %v", ev, err)
	}
	if app.User != nil {
		var feedback string
		if app.RejectionReason != nil {
			feedback = *app.RejectionReason
		}
		s.mailer.SendApplicationStatus(ctx, app.User.Email, app.CompanyName, "Recruiter", string(app.Status), feedback)
	}
}
