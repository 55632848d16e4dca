package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"jobtracker/internal/cache"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/repository"
	"jobtracker/internal/storage"
)

// JobPostingInput holds the recruiter-editable posting fields.
type JobPostingInput struct {
	Title               string
	CompanyName         string
	Description         string
	Location            string
	IsRemote            bool
	SalaryRange         string
	SalaryMin           *decimal.Decimal
	SalaryMax           *decimal.Decimal
	Requirements        string
	ApplicationDeadline time.Time
	IsActive            *bool
}

// Applicant is an application to a posting with the applicant's contact details.
type Applicant struct {
	model.JobApplication
	ApplicantEmail    string `json:"applicant_email"`
	ApplicantUserName string `json:"applicant_user_name"`
}

// JobPostingService manages job postings.
type JobPostingService interface {
	List(ctx context.Context, subject policy.Subject, includeInactive bool) ([]model.JobPosting, error)
	Get(ctx context.Context, subject policy.Subject, id uint) (*model.JobPosting, error)
	MyPostings(ctx context.Context, subject policy.Subject) ([]model.JobPosting, error)
	Create(ctx context.Context, subject policy.Subject, in JobPostingInput) (*model.JobPosting, error)
	Update(ctx context.Context, subject policy.Subject, id uint, in JobPostingInput) (*model.JobPosting, error)
	Delete(ctx context.Context, subject policy.Subject, id uint) error
	ToggleStatus(ctx context.Context, subject policy.Subject, id uint) (*model.JobPosting, error)
	Applicants(ctx context.Context, subject policy.Subject, id uint) ([]Applicant, error)
}

type jobPostingService struct {
	store  repository.Store
	files  storage.FileStore
	cache  postingCache
	now    Clock
	logger *log.Logger
}

// NewJobPostingService creates a new job posting service.
func NewJobPostingService(store repository.Store, files storage.FileStore, c cache.Store, clock Clock) JobPostingService {
	return &jobPostingService{
		store:  store,
		files:  files,
		cache:  postingCache{store: c},
		now:    clockOrDefault(clock),
		logger: log.New("postings"),
	}
}

// List returns active postings to everyone. Admins may ask for inactive ones too.
func (s *jobPostingService) List(ctx context.Context, subject policy.Subject, includeInactive bool) ([]model.JobPosting, error) {
	if includeInactive && subject.IsAdmin() {
		return s.store.JobPostings().List(ctx, true)
	}
	if postings, ok := s.cache.get(ctx); ok {
		return postings, nil
	}
	postings, err := s.store.JobPostings().List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	s.cache.set(ctx, postings)
	return postings, nil
}

// Get returns a posting. Inactive postings are visible only to their
// recruiter and admins.
func (s *jobPostingService) Get(ctx context.Context, subject policy.Subject, id uint) (*model.JobPosting, error) {
	posting, err := s.store.JobPostings().FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, apperrors.ErrJobPostingNotFound, "find posting")
	}
	if !posting.IsActive && !policy.CanManagePosting(subject, posting) {
		return nil, apperrors.ErrJobPostingNotFound
	}
	return posting, nil
}

func (s *jobPostingService) MyPostings(ctx context.Context, subject policy.Subject) ([]model.JobPosting, error) {
	if err := policy.RequireRole(subject, model.RoleRecruiter); err != nil {
		return nil, err
	}
	return s.store.JobPostings().ListByRecruiter(ctx, subject.UserID, true)
}

func (s *jobPostingService) Create(ctx context.Context, subject policy.Subject, in JobPostingInput) (*model.JobPosting, error) {
	if err := policy.RequireRole(subject, model.RoleRecruiter); err != nil {
		return nil, err
	}
	if err := validatePostingInput(&in); err != nil {
		return nil, err
	}
	posting := &model.JobPosting{
		RecruiterID: subject.UserID,
		PostedDate:  s.now(),
		IsActive:    true,
	}
	applyPostingInput(posting, in)
	active := posting.IsActive
	if err := s.store.JobPostings().Create(ctx, posting); err != nil {
		return nil, fmt.Errorf("create posting: %w", err)
	}
	// gorm omits a false IsActive on insert and reads the column default back.
	if !active {
		if err := s.store.JobPostings().SetActive(ctx, posting.ID, false); err != nil {
			return nil, fmt.Errorf("deactivate posting: %w", err)
		}
		posting.IsActive = false
	}
	s.cache.invalidate(ctx)
	return posting, nil
}

// manage loads a posting the subject may change.
func (s *jobPostingService) manage(ctx context.Context, subject policy.Subject, id uint) (*model.JobPosting, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	posting, err := s.store.JobPostings().FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, apperrors.ErrJobPostingNotFound, "find posting")
	}
	if !policy.CanManagePosting(subject, posting) {
		return nil, apperrors.ErrForbidden
	}
	return posting, nil
}

func (s *jobPostingService) Update(ctx context.Context, subject policy.Subject, id uint, in JobPostingInput) (*model.JobPosting, error) {
	if err := validatePostingInput(&in); err != nil {
		return nil, err
	}
	posting, err := s.manage(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	applyPostingInput(posting, in)
	if err := s.store.JobPostings().Update(ctx, posting); err != nil {
		return nil, fmt.Errorf("update posting: %w", err)
	}
	s.cache.invalidate(ctx)
	return posting, nil
}

// Delete removes a posting and every application made to it.
func (s *jobPostingService) Delete(ctx context.Context, subject policy.Subject, id uint) error {
	posting, err := s.manage(ctx, subject, id)
	if err != nil {
		return err
	}
	var files []string
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		apps, err := tx.JobApplications().ListByPostings(ctx, []uint{posting.ID})
		if err != nil {
			return fmt.Errorf("list applications: %w", err)
		}
		files = cvPaths(apps)
		if err := tx.JobApplications().DeleteByPostings(ctx, []uint{posting.ID}); err != nil {
			return fmt.Errorf("delete applications: %w", err)
		}
		return tx.JobPostings().Delete(ctx, posting.ID)
	})
	if err != nil {
		return err
	}
	removeFiles(ctx, s.files, s.logger, files)
	s.cache.invalidate(ctx)
	return nil
}

func (s *jobPostingService) ToggleStatus(ctx context.Context, subject policy.Subject, id uint) (*model.JobPosting, error) {
	posting, err := s.manage(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	posting.IsActive = !posting.IsActive
	if err := s.store.JobPostings().SetActive(ctx, posting.ID, posting.IsActive); err != nil {
		return nil, fmt.Errorf("toggle posting: %w", err)
	}
	s.cache.invalidate(ctx)
	return posting, nil
}

func (s *jobPostingService) Applicants(ctx context.Context, subject policy.Subject, id uint) ([]Applicant, error) {
	posting, err := s.manage(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	apps, err := s.store.JobApplications().ListByPostings(ctx, []uint{posting.ID})
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	users := make(map[uuid.UUID]*model.User)
	out := make([]Applicant, 0, len(apps))
	for _, app := range apps {
		u, ok := users[app.UserID]
		if !ok {
			u, err = s.store.Users().FindByID(ctx, app.UserID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("find applicant: %w", err)
			}
			users[app.UserID] = u
		}
		a := Applicant{JobApplication: app}
		if u != nil {
			a.ApplicantEmail = u.Email
			a.ApplicantUserName = u.UserName
		}
		out = append(out, a)
	}
	return out, nil
}

func validatePostingInput(in *JobPostingInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if in.Title == "" || in.CompanyName == "" || strings.TrimSpace(in.Description) == "" || strings.TrimSpace(in.Requirements) == "" {
		return fmt.Errorf("%w: title, company name, description and requirements are required", apperrors.ErrValidation)
	}
	if in.ApplicationDeadline.IsZero() {
		return fmt.Errorf("%w: application deadline is required", apperrors.ErrValidation)
	}
	if in.SalaryMin != nil && in.SalaryMin.IsNegative() || in.SalaryMax != nil && in.SalaryMax.IsNegative() {
		return fmt.Errorf("%w: salary cannot be negative", apperrors.ErrValidation)
	}
	if in.SalaryMin != nil && in.SalaryMax != nil {
		if in.SalaryMin.GreaterThan(*in.SalaryMax) {
			return fmt.Errorf("%w: minimum salary exceeds maximum", apperrors.ErrValidation)
		}
		if strings.TrimSpace(in.SalaryRange) == "" {
			in.SalaryRange = in.SalaryMin.StringFixed(0) + " - " + in.SalaryMax.StringFixed(0)
		}
	}
	return nil
}

func applyPostingInput(p *model.JobPosting, in JobPostingInput) {
	p.Title = in.Title
	p.CompanyName = in.CompanyName
	p.Description = in.Description
	p.Location = in.Location
	p.IsRemote = in.IsRemote
	p.SalaryRange = in.SalaryRange
	p.SalaryMin = in.SalaryMin
	p.SalaryMax = in.SalaryMax
	p.Requirements = in.Requirements
	p.ApplicationDeadline = in.ApplicationDeadline
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}
