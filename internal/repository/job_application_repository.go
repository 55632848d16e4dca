package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"jobtracker/internal/model"
)

// StatusCount is the number of applications in a lifecycle status.
type StatusCount struct {
	Status model.ApplicationStatus `json:"status"`
	Count  int64                   `json:"count"`
}

// UserCount is the number of applications owned by a user.
type UserCount struct {
	UserID uuid.UUID `json:"user_id"`
	Count  int64     `json:"count"`
}

// JobApplicationRepository defines job application persistence operations.
type JobApplicationRepository interface {
	Create(ctx context.Context, app *model.JobApplication) error
	Update(ctx context.Context, app *model.JobApplication) error
	Delete(ctx context.Context, id uint) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteByPostings(ctx context.Context, postingIDs []uint) error
	FindByID(ctx context.Context, id uint) (*model.JobApplication, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.JobApplication, error)
	ListByPostings(ctx context.Context, postingIDs []uint) ([]model.JobApplication, error)
	ListAll(ctx context.Context) ([]model.JobApplication, error)
	ExistsForPosting(ctx context.Context, userID uuid.UUID, postingID uint) (bool, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountPerUser(ctx context.Context) ([]UserCount, error)
	ListDeadlinesBetween(ctx context.Context, from, to time.Time) ([]model.JobApplication, error)
}

type jobApplicationRepository struct {
	db *gorm.DB
}

// NewJobApplicationRepository creates a new job application repository.
func NewJobApplicationRepository(db *gorm.DB) JobApplicationRepository {
	return &jobApplicationRepository{db: db}
}

func (r *jobApplicationRepository) Create(ctx context.Context, app *model.JobApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *jobApplicationRepository) Update(ctx context.Context, app *model.JobApplication) error {
	return r.db.WithContext(ctx).Omit("User", "JobPosting").Save(app).Error
}

func (r *jobApplicationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.JobApplication{}, id).Error
}

func (r *jobApplicationRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.JobApplication{}).Error
}

func (r *jobApplicationRepository) DeleteByPostings(ctx context.Context, postingIDs []uint) error {
	if len(postingIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("job_posting_id IN ?", postingIDs).Delete(&model.JobApplication{}).Error
}

func (r *jobApplicationRepository) FindByID(ctx context.Context, id uint) (*model.JobApplication, error) {
	var app model.JobApplication
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *jobApplicationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.JobApplication, error) {
	var apps []model.JobApplication
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("deadline").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *jobApplicationRepository) ListByPostings(ctx context.Context, postingIDs []uint) ([]model.JobApplication, error) {
	var apps []model.JobApplication
	if len(postingIDs) == 0 {
		return apps, nil
	}
	if err := r.db.WithContext(ctx).Where("job_posting_id IN ?", postingIDs).Order("created_at").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *jobApplicationRepository) ListAll(ctx context.Context) ([]model.JobApplication, error) {
	var apps []model.JobApplication
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *jobApplicationRepository) ExistsForPosting(ctx context.Context, userID uuid.UUID, postingID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.JobApplication{}).
		Where("user_id = ? AND job_posting_id = ?", userID, postingID).
		Count(&n).Error
	return n > 0, err
}

func (r *jobApplicationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.JobApplication{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *jobApplicationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.JobApplication{}).Count(&n).Error
	return n, err
}

func (r *jobApplicationRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).Model(&model.JobApplication{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	return counts, err
}

func (r *jobApplicationRepository) CountPerUser(ctx context.Context) ([]UserCount, error) {
	var counts []UserCount
	err := r.db.WithContext(ctx).Model(&model.JobApplication{}).
		Select("user_id, COUNT(*) AS count").
		Group("user_id").
		Order("count DESC").
		Scan(&counts).Error
	return counts, err
}

func (r *jobApplicationRepository) ListDeadlinesBetween(ctx context.Context, from, to time.Time) ([]model.JobApplication, error) {
	var apps []model.JobApplication
	err := r.db.WithContext(ctx).
		Where("deadline >= ? AND deadline <= ?", from, to).
		Order("deadline").
		Find(&apps).Error
	return apps, err
}
