package model

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the applicant's own view of where an application stands.
type ApplicationStatus string

const (
	ApplicationStatusApplicationNeeded ApplicationStatus = "ApplicationNeeded"
	ApplicationStatusApplied           ApplicationStatus = "Applied"
	ApplicationStatusExamCenter        ApplicationStatus = "ExamCenter"
	ApplicationStatusInterviewing      ApplicationStatus = "Interviewing"
	ApplicationStatusAwaitingOffer     ApplicationStatus = "AwaitingOffer"
	ApplicationStatusRejected          ApplicationStatus = "Rejected"
)

// RecruiterStatus is the posting recruiter's decision on an application.
type RecruiterStatus string

const (
	RecruiterStatusPending            RecruiterStatus = "Pending"
	RecruiterStatusReviewing          RecruiterStatus = "Reviewing"
	RecruiterStatusInterviewRequested RecruiterStatus = "InterviewRequested"
	RecruiterStatusAccepted           RecruiterStatus = "Accepted"
	RecruiterStatusRejected           RecruiterStatus = "Rejected"
)

// JobApplication is a single application tracked by its owner. A nil JobPostingID
// means the application was made outside the platform and is tracked manually.
type JobApplication struct {
	ID                    uint              `json:"id" gorm:"primaryKey"`
	CompanyName           string            `json:"company_name" gorm:"size:255;not null"`
	Position              string            `json:"position" gorm:"size:255;not null"`
	Status                ApplicationStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	Deadline              time.Time         `json:"deadline" gorm:"index"`
	Notes                 string            `json:"notes" gorm:"type:text"`
	CompanyWebsite        string            `json:"company_website,omitempty" gorm:"size:512"`
	JobURL                string            `json:"job_url,omitempty" gorm:"size:512"`
	CoverLetter           string            `json:"cover_letter,omitempty" gorm:"type:text"`
	UserID                uuid.UUID         `json:"user_id" gorm:"type:char(36);not null;index;uniqueIndex:idx_job_applications_user_posting"`
	JobPostingID          *uint             `json:"job_posting_id,omitempty" gorm:"index;uniqueIndex:idx_job_applications_user_posting"`
	CvFilePath            *string           `json:"cv_file_path,omitempty" gorm:"size:512"`
	RecruiterStatus       *RecruiterStatus  `json:"recruiter_status,omitempty" gorm:"type:varchar(32)"`
	RecruiterFeedback     *string           `json:"recruiter_feedback,omitempty" gorm:"type:text"`
	RecruiterResponseDate *time.Time        `json:"recruiter_response_date,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`

	// Relations
	User       *User       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	JobPosting *JobPosting `json:"-" gorm:"foreignKey:JobPostingID;constraint:OnDelete:CASCADE"`
}

// IsValidApplicationStatus reports whether s is a known lifecycle status.
func IsValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationStatusApplicationNeeded, ApplicationStatusApplied, ApplicationStatusExamCenter,
		ApplicationStatusInterviewing, ApplicationStatusAwaitingOffer, ApplicationStatusRejected:
		return true
	}
	return false
}

// IsValidRecruiterStatus reports whether s is a known recruiter decision.
func IsValidRecruiterStatus(s RecruiterStatus) bool {
	switch s {
	case RecruiterStatusPending, RecruiterStatusReviewing, RecruiterStatusInterviewRequested,
		RecruiterStatusAccepted, RecruiterStatusRejected:
		return true
	}
	return false
}
