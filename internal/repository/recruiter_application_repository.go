package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"jobtracker/internal/model"
)

// RecruiterApplicationRepository defines recruiter application persistence operations.
type RecruiterApplicationRepository interface {
	Create(ctx context.Context, app *model.RecruiterApplication) error
	Update(ctx context.Context, app *model.RecruiterApplication) error
	FindByID(ctx context.Context, id uint) (*model.RecruiterApplication, error)
	FindPendingByUser(ctx context.Context, userID uuid.UUID) (*model.RecruiterApplication, error)
	LatestByUser(ctx context.Context, userID uuid.UUID) (*model.RecruiterApplication, error)
	List(ctx context.Context, pendingOnly bool) ([]model.RecruiterApplication, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	ClearReviewer(ctx context.Context, reviewerID uuid.UUID) error
}

type recruiterApplicationRepository struct {
	db *gorm.DB
}

// NewRecruiterApplicationRepository creates a new recruiter application repository.
func NewRecruiterApplicationRepository(db *gorm.DB) RecruiterApplicationRepository {
	return &recruiterApplicationRepository{db: db}
}

func (r *recruiterApplicationRepository) Create(ctx context.Context, app *model.RecruiterApplication) error {
	return r.db.WithContext(ctx).Omit("User", "ReviewedBy").Create(app).Error
}

func (r *recruiterApplicationRepository) Update(ctx context.Context, app *model.RecruiterApplication) error {
	return r.db.WithContext(ctx).Omit("User", "ReviewedBy").Save(app).Error
}

func (r *recruiterApplicationRepository) FindByID(ctx context.Context, id uint) (*model.RecruiterApplication, error) {
	var app model.RecruiterApplication
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *recruiterApplicationRepository) FindPendingByUser(ctx context.Context, userID uuid.UUID) (*model.RecruiterApplication, error) {
	var app model.RecruiterApplication
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.RecruiterApplicationPending).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *recruiterApplicationRepository) LatestByUser(ctx context.Context, userID uuid.UUID) (*model.RecruiterApplication, error) {
	var app model.RecruiterApplication
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("application_date DESC").Order("id DESC").
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *recruiterApplicationRepository) List(ctx context.Context, pendingOnly bool) ([]model.RecruiterApplication, error) {
	var apps []model.RecruiterApplication
	q := r.db.WithContext(ctx).Preload("User")
	if pendingOnly {
		q = q.Where("status = ?", model.RecruiterApplicationPending)
	}
	if err := q.Order("application_date DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *recruiterApplicationRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RecruiterApplication{}).Error
}

func (r *recruiterApplicationRepository) ClearReviewer(ctx context.Context, reviewerID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.RecruiterApplication{}).
		Where("reviewed_by_user_id = ?", reviewerID).
		Update("reviewed_by_user_id", nil).Error
}
