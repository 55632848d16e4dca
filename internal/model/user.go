package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an identity that can sign in to the tracker.
type User struct {
	ID                   uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Email                string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	UserName             string     `json:"user_name" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash         string     `json:"-" gorm:"size:255"` // empty for accounts created through Google sign-in
	EmailConfirmed       bool       `json:"email_confirmed" gorm:"default:false"`
	PhoneNumber          string     `json:"phone_number,omitempty" gorm:"size:50"`
	PhoneNumberConfirmed bool       `json:"phone_number_confirmed" gorm:"default:false"`
	SecurityStamp        string     `json:"-" gorm:"size:36;not null"`
	LastLoginAt          *time.Time `json:"last_login_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Relations
	Roles []Role `json:"-" gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets the UUID and security stamp before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.SecurityStamp == "" {
		u.SecurityStamp = uuid.NewString()
	}
	return nil
}

// RoleNames returns the names of the loaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
