package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	"jobtracker/internal/email"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/metrics"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/queue"
	"jobtracker/internal/repository"
	"jobtracker/internal/storage"
)

// JobApplicationInput holds the applicant-controlled fields.
type JobApplicationInput struct {
	CompanyName    string
	Position       string
	Status         model.ApplicationStatus
	Deadline       time.Time
	Notes          string
	CompanyWebsite string
	JobURL         string
	CoverLetter    string
}

// ApplyInput is an application to a posting. File is optional; when it is
// set FileName and Size describe it.
type ApplyInput struct {
	Notes       string
	CoverLetter string
	File        io.Reader
	FileName    string
	Size        int64
	ContentType string
}

// RecruiterStatusInput is a recruiter's decision on an application.
type RecruiterStatusInput struct {
	Status   model.RecruiterStatus
	Feedback *string
}

// JobApplicationService manages job applications.
type JobApplicationService interface {
	List(ctx context.Context, subject policy.Subject) ([]model.JobApplication, error)
	Get(ctx context.Context, subject policy.Subject, id uint) (*model.JobApplication, error)
	Create(ctx context.Context, subject policy.Subject, in JobApplicationInput) (*model.JobApplication, error)
	Update(ctx context.Context, subject policy.Subject, id uint, in JobApplicationInput) (*model.JobApplication, error)
	Delete(ctx context.Context, subject policy.Subject, id uint) error
	Apply(ctx context.Context, subject policy.Subject, postingID uint, in ApplyInput) (*model.JobApplication, error)
	UpdateRecruiterStatus(ctx context.Context, subject policy.Subject, id uint, in RecruiterStatusInput) (*model.JobApplication, error)
}

type jobApplicationService struct {
	store   repository.Store
	files   storage.FileStore
	mailer  *email.Mailer
	events  queue.Publisher
	metrics *metrics.Metrics
	now     Clock
	logger  *log.Logger
}

// NewJobApplicationService creates a new job application service.
func NewJobApplicationService(
	store repository.Store,
	files storage.FileStore,
	mailer *email.Mailer,
	events queue.Publisher,
	m *metrics.Metrics,
	clock Clock,
) JobApplicationService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &jobApplicationService{
		store:   store,
		files:   files,
		mailer:  mailer,
		events:  events,
		metrics: m,
		now:     clockOrDefault(clock),
		logger:  log.New("applications"),
	}
}

func (s *jobApplicationService) List(ctx context.Context, subject policy.Subject) ([]model.JobApplication, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	apps, err := s.store.JobApplications().ListByUser(ctx, subject.UserID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// load fetches an application and its posting and runs the policy check.
// Missing records are passed to the policy as nil so that non-admins cannot
// tell them apart from records they may not see.
func (s *jobApplicationService) load(ctx context.Context, subject policy.Subject, id uint, action policy.Action) (*model.JobApplication, *model.JobPosting, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, nil, err
	}
	app, err := s.store.JobApplications().FindByID(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("find application: %w", err)
	}
	var posting *model.JobPosting
	if app != nil && app.JobPostingID != nil {
		posting, err = s.store.JobPostings().FindByID(ctx, *app.JobPostingID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("find posting: %w", err)
		}
	}
	if err := policy.AuthorizeApplication(subject, app, posting, action); err != nil {
		return nil, nil, err
	}
	return app, posting, nil
}

func (s *jobApplicationService) Get(ctx context.Context, subject policy.Subject, id uint) (*model.JobApplication, error) {
	app, _, err := s.load(ctx, subject, id, policy.ActionRead)
	return app, err
}

// Create records a manually tracked application. It has no posting and no
// recruiter decision.
func (s *jobApplicationService) Create(ctx context.Context, subject policy.Subject, in JobApplicationInput) (*model.JobApplication, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	if err := validateApplicationInput(&in); err != nil {
		return nil, err
	}
	app := &model.JobApplication{UserID: subject.UserID}
	applyInput(app, in)
	if err := s.store.JobApplications().Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

// Update changes the applicant-controlled fields. The posting link, CV and
// recruiter decision are left alone.
func (s *jobApplicationService) Update(ctx context.Context, subject policy.Subject, id uint, in JobApplicationInput) (*model.JobApplication, error) {
	if err := validateApplicationInput(&in); err != nil {
		return nil, err
	}
	app, _, err := s.load(ctx, subject, id, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}
	applyInput(app, in)
	if err := s.store.JobApplications().Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

func (s *jobApplicationService) Delete(ctx context.Context, subject policy.Subject, id uint) error {
	app, _, err := s.load(ctx, subject, id, policy.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.store.JobApplications().Delete(ctx, app.ID); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	removeFiles(ctx, s.files, s.logger, cvPaths([]model.JobApplication{*app}))
	return nil
}

// Apply submits an application to a posting. The upload is validated before
// anything is stored, and a stored CV is removed again if the row cannot be
// created.
func (s *jobApplicationService) Apply(ctx context.Context, subject policy.Subject, postingID uint, in ApplyInput) (*model.JobApplication, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	var ext string
	if in.File != nil {
		var err error
		if ext, err = storage.ValidateCV(in.FileName, in.Size); err != nil {
			return nil, err
		}
	}

	posting, err := s.store.JobPostings().FindByID(ctx, postingID)
	if err != nil {
		return nil, lookup(err, apperrors.ErrJobPostingNotFound, "find posting")
	}
	now := s.now()
	if !posting.AcceptsApplications(now) {
		return nil, apperrors.ErrPostingClosed
	}
	if posting.RecruiterID == subject.UserID {
		return nil, apperrors.ErrOwnPosting
	}
	exists, err := s.store.JobApplications().ExistsForPosting(ctx, subject.UserID, posting.ID)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return nil, apperrors.ErrDuplicateApplication
	}

	var cvPath *string
	if in.File != nil {
		name := storage.CVFileName(subject.UserID, now, ext)
		p, err := s.files.Save(ctx, name, in.File, in.Size, in.ContentType)
		if err != nil {
			return nil, fmt.Errorf("save cv: %w", err)
		}
		cvPath = &p
	}

	pending := model.RecruiterStatusPending
	app := &model.JobApplication{
		CompanyName:     posting.CompanyName,
		Position:        posting.Title,
		Status:          model.ApplicationStatusApplied,
		Deadline:        posting.ApplicationDeadline,
		Notes:           in.Notes,
		CoverLetter:     in.CoverLetter,
		UserID:          subject.UserID,
		JobPostingID:    &posting.ID,
		CvFilePath:      cvPath,
		RecruiterStatus: &pending,
	}
	if err := s.store.JobApplications().Create(ctx, app); err != nil {
		if cvPath != nil {
			removeFiles(ctx, s.files, s.logger, []string{*cvPath})
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateApplication
		}
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.metrics.ApplicationSubmitted()
	s.publish(ctx, queue.Event{
		Type:             queue.EventApplicationSubmitted,
		UserID:           subject.UserID.String(),
		JobApplicationID: app.ID,
		JobPostingID:     posting.ID,
		Status:           string(pending),
	})
	return app, nil
}

// UpdateRecruiterStatus records the posting recruiter's decision and tells the applicant.
func (s *jobApplicationService) UpdateRecruiterStatus(ctx context.Context, subject policy.Subject, id uint, in RecruiterStatusInput) (*model.JobApplication, error) {
	if !model.IsValidRecruiterStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown recruiter status %q", apperrors.ErrValidation, in.Status)
	}
	app, _, err := s.load(ctx, subject, id, policy.ActionReview)
	if err != nil {
		return nil, err
	}
	if app.JobPostingID == nil {
		return nil, apperrors.ErrNotPostingApplication
	}

	now := s.now()
	status := in.Status
	app.RecruiterStatus = &status
	if in.Feedback != nil {
		feedback := strings.TrimSpace(*in.Feedback)
		app.RecruiterFeedback = &feedback
	}
	app.RecruiterResponseDate = &now
	if err := s.store.JobApplications().Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update recruiter status: %w", err)
	}

	if applicant, err := s.store.Users().FindByID(ctx, app.UserID); err == nil {
		var feedback string
		if app.RecruiterFeedback != nil {
			feedback = *app.RecruiterFeedback
		}
		s.mailer.SendApplicationStatus(ctx, applicant.Email, app.CompanyName, app.Position, string(status), feedback)
	} else {
		s.logger.Warnf("load applicant %s: %v", app.UserID, err)
	}
	s.metrics.RecruiterStatusChanged(string(status))
	s.publish(ctx, queue.Event{
		Type:             queue.EventApplicationRecruiterStatusChanged,
		UserID:           app.UserID.String(),
		ActorID:          subject.UserID.String(),
		JobApplicationID: app.ID,
		JobPostingID:     *app.JobPostingID,
		Status:           string(status),
	})
	return app, nil
}

func (s *jobApplicationService) publish(ctx context.Context, ev queue.Event) {
	if err := queue.PublishEvent(ctx, s.events, ev); err != nil {
		s.logger.Warnf("publish %s: %v", ev.Type, err)
	}
}

func validateApplicationInput(in *JobApplicationInput) error {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Position = strings.TrimSpace(in.Position)
	if in.CompanyName == "" || in.Position == "" {
		return fmt.Errorf("%w: company name and position are required", apperrors.ErrValidation)
	}
	if in.Status == "" {
		in.Status = model.ApplicationStatusApplicationNeeded
	}
	if !model.IsValidApplicationStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, in.Status)
	}
	return nil
}

func applyInput(app *model.JobApplication, in JobApplicationInput) {
	app.CompanyName = in.CompanyName
	app.Position = in.Position
	app.Status = in.Status
	app.Deadline = in.Deadline
	app.Notes = in.Notes
	app.CompanyWebsite = in.CompanyWebsite
	app.JobURL = in.JobURL
	app.CoverLetter = in.CoverLetter
}
