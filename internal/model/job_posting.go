package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JobPosting is a vacancy published by a recruiter.
type JobPosting struct {
	ID                  uint             `json:"id" gorm:"primaryKey"`
	Title               string           `json:"title" gorm:"size:255;not null"`
	CompanyName         string           `json:"company_name" gorm:"size:255;not null"`
	Description         string           `json:"description" gorm:"type:text;not null"`
	Location            string           `json:"location,omitempty" gorm:"size:255"`
	IsRemote            bool             `json:"is_remote"`
	SalaryRange         string           `json:"salary_range,omitempty" gorm:"size:128"`
	SalaryMin           *decimal.Decimal `json:"salary_min,omitempty" gorm:"type:decimal(20,2)" swaggertype:"string"`
	SalaryMax           *decimal.Decimal `json:"salary_max,omitempty" gorm:"type:decimal(20,2)" swaggertype:"string"`
	Requirements        string           `json:"requirements" gorm:"type:text;not null"`
	PostedDate          time.Time        `json:"posted_date" gorm:"index"`
	ApplicationDeadline time.Time        `json:"application_deadline"`
	IsActive            bool             `json:"is_active" gorm:"default:true;index"`
	RecruiterID         uuid.UUID        `json:"recruiter_id" gorm:"type:char(36);not null;index"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`

	// Relations
	Recruiter *User `json:"-" gorm:"foreignKey:RecruiterID;constraint:OnDelete:CASCADE"`
}

// AcceptsApplications reports whether the posting is open at the given time.
func (p *JobPosting) AcceptsApplications(now time.Time) bool {
	return p.IsActive && !p.ApplicationDeadline.Before(now)
}
