package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
	RoleUser     = "user"
)

// User account statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// User represents an account in the business management system. The session
// subsystem mostly reads it; only the reset-token fields and last-login
// timestamp are written here.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Role      string         `gorm:"not null;default:user" json:"role"`
	Status    string         `gorm:"not null;default:active" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Password reset flow
	ResetToken       *string    `gorm:"index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may authenticate
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// HasRole reports whether the user holds the given role. Admins pass every
// role check.
func (u *User) HasRole(role string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return u.Role == role
}
