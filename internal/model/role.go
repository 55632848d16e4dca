package model

import "time"

// Built-in role names.
const (
	RoleAdmin     = "Admin"
	RoleUser      = "User"
	RoleRecruiter = "Recruiter"
)

// BuiltinRoles are created at startup and cannot be deleted.
var BuiltinRoles = []string{RoleAdmin, RoleUser, RoleRecruiter}

// Role is a named tag granted to users.
type Role struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// IsBuiltinRole reports whether name is one of the roles the system depends on.
func IsBuiltinRole(name string) bool {
	for _, r := range BuiltinRoles {
		if r == name {
			return true
		}
	}
	return false
}
