package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"jobtracker/internal/model"
)

// JobPostingRepository defines job posting persistence operations.
type JobPostingRepository interface {
	Create(ctx context.Context, posting *model.JobPosting) error
	Update(ctx context.Context, posting *model.JobPosting) error
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
	DeleteByIDs(ctx context.Context, ids []uint) error
	FindByID(ctx context.Context, id uint) (*model.JobPosting, error)
	List(ctx context.Context, includeInactive bool) ([]model.JobPosting, error)
	ListByRecruiter(ctx context.Context, recruiterID uuid.UUID, includeInactive bool) ([]model.JobPosting, error)
}

type jobPostingRepository struct {
	db *gorm.DB
}

// NewJobPostingRepository creates a new job posting repository.
func NewJobPostingRepository(db *gorm.DB) JobPostingRepository {
	return &jobPostingRepository{db: db}
}

func (r *jobPostingRepository) Create(ctx context.Context, posting *model.JobPosting) error {
	return r.db.WithContext(ctx).Create(posting).Error
}

func (r *jobPostingRepository) Update(ctx context.Context, posting *model.JobPosting) error {
	return r.db.WithContext(ctx).Omit("Recruiter").Save(posting).Error
}

func (r *jobPostingRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&model.JobPosting{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *jobPostingRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.JobPosting{}, id).Error
}

func (r *jobPostingRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.JobPosting{}).Error
}

func (r *jobPostingRepository) FindByID(ctx context.Context, id uint) (*model.JobPosting, error) {
	var posting model.JobPosting
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&posting).Error; err != nil {
		return nil, err
	}
	return &posting, nil
}

func (r *jobPostingRepository) List(ctx context.Context, includeInactive bool) ([]model.JobPosting, error) {
	var postings []model.JobPosting
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("posted_date DESC").Find(&postings).Error; err != nil {
		return nil, err
	}
	return postings, nil
}

func (r *jobPostingRepository) ListByRecruiter(ctx context.Context, recruiterID uuid.UUID, includeInactive bool) ([]model.JobPosting, error) {
	var postings []model.JobPosting
	q := r.db.WithContext(ctx).Where("recruiter_id = ?", recruiterID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("posted_date DESC").Find(&postings).Error; err != nil {
		return nil, err
	}
	return postings, nil
}
