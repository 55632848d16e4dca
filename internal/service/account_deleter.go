package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"jobtracker/internal/cache"
	"jobtracker/internal/email"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/metrics"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/queue"
	"jobtracker/internal/repository"
	"jobtracker/internal/storage"
)

// AccountDeleter removes a user together with everything they own. The
// database work is one transaction; stored files are removed only after it
// commits, so a rollback never leaves rows pointing at deleted files.
type AccountDeleter struct {
	store    repository.Store
	files    storage.FileStore
	mailer   *email.Mailer
	events   queue.Publisher
	metrics  *metrics.Metrics
	postings postingCache
	logger   *log.Logger
}

// NewAccountDeleter creates an AccountDeleter.
func NewAccountDeleter(
	store repository.Store,
	files storage.FileStore,
	mailer *email.Mailer,
	events queue.Publisher,
	m *metrics.Metrics,
	c cache.Store,
) *AccountDeleter {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &AccountDeleter{
		store:    store,
		files:    files,
		mailer:   mailer,
		events:   events,
		metrics:  m,
		postings: postingCache{store: c},
		logger:   log.New("account"),
	}
}

// Delete removes userID. actorID is recorded on the emitted event.
func (d *AccountDeleter) Delete(ctx context.Context, userID, actorID uuid.UUID) error {
	var (
		userEmail      string
		files          []string
		removedPosting bool
	)

	err := d.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return lookup(err, apperrors.ErrUserNotFound, "find user")
		}
		userEmail = user.Email

		roles := user.RoleNames()
		if hasRole(roles, model.RoleAdmin) {
			admins, err := tx.Users().IDsInRole(ctx, model.RoleAdmin)
			if err != nil {
				return fmt.Errorf("count admins: %w", err)
			}
			if err := policy.EnsureNotLastAdmin(admins, userID); err != nil {
				return err
			}
		}

		own, err := tx.JobApplications().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list applications: %w", err)
		}
		files = append(files, cvPaths(own)...)
		if err := tx.JobApplications().DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete applications: %w", err)
		}

		// A user who lost the Recruiter role may still own postings, and the
		// postings' foreign key would remove them anyway; do it here so the
		// applicants' CVs are collected.
		postings, err := tx.JobPostings().ListByRecruiter(ctx, userID, true)
		if err != nil {
			return fmt.Errorf("list postings: %w", err)
		}
		if len(postings) > 0 {
			ids := make([]uint, 0, len(postings))
			for _, p := range postings {
				ids = append(ids, p.ID)
			}
			applicants, err := tx.JobApplications().ListByPostings(ctx, ids)
			if err != nil {
				return fmt.Errorf("list posting applications: %w", err)
			}
			files = append(files, cvPaths(applicants)...)
			if err := tx.JobApplications().DeleteByPostings(ctx, ids); err != nil {
				return fmt.Errorf("delete posting applications: %w", err)
			}
			if err := tx.JobPostings().DeleteByIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete postings: %w", err)
			}
			removedPosting = true
		}

		if err := tx.RecruiterApplications().DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete recruiter applications: %w", err)
		}
		if err := tx.RecruiterApplications().ClearReviewer(ctx, userID); err != nil {
			return fmt.Errorf("clear reviewer: %w", err)
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	removeFiles(ctx, d.files, d.logger, files)
	if removedPosting {
		d.postings.invalidate(ctx)
	}
	d.mailer.SendAccountDeleted(ctx, userEmail)
	d.metrics.AccountDeleted()
	if err := queue.PublishEvent(ctx, d.events, queue.Event{
		Type:    queue.EventAccountDeleted,
		UserID:  userID.String(),
		ActorID: actorID.String(),
	}); err != nil {
		d.logger.Warnf("publish %s: %v", queue.EventAccountDeleted, err)
	}
	d.logger.Infof("deleted account %s (%d files)", userID, len(files))
	return nil
}
