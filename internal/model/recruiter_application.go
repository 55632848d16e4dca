package model

import (
	"time"

	"github.com/google/uuid"
)

// RecruiterApplicationStatus tracks a request for the Recruiter role.
type RecruiterApplicationStatus string

const (
	RecruiterApplicationPending  RecruiterApplicationStatus = "Pending"
	RecruiterApplicationApproved RecruiterApplicationStatus = "Approved"
	RecruiterApplicationRejected RecruiterApplicationStatus = "Rejected"
)

// RecruiterApplication is a user's request to be granted the Recruiter role.
// Approved and Rejected are terminal.
type RecruiterApplication struct {
	ID               uint                       `json:"id" gorm:"primaryKey"`
	UserID           uuid.UUID                  `json:"user_id" gorm:"type:char(36);not null;index"`
	CompanyName      string                     `json:"company_name" gorm:"size:255;not null"`
	CompanyWebsite   string                     `json:"company_website" gorm:"size:512;not null"`
	JobTitle         string                     `json:"job_title" gorm:"size:255;not null"`
	Motivation       string                     `json:"motivation" gorm:"type:text;not null"`
	ApplicationDate  time.Time                  `json:"application_date" gorm:"index"`
	Status           RecruiterApplicationStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	ReviewedByUserID *uuid.UUID                 `json:"reviewed_by_user_id,omitempty" gorm:"type:char(36)"`
	ReviewDate       *time.Time                 `json:"review_date,omitempty"`
	RejectionReason  *string                    `json:"rejection_reason,omitempty" gorm:"type:text"`

	// Relations
	User       *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ReviewedBy *User `json:"-" gorm:"foreignKey:ReviewedByUserID;constraint:OnDelete:SET NULL"`
}
