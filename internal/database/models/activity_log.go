package models

import (
	"time"
)

// Activity log actions emitted by the session subsystem
const (
	ActivityLogin         = "login"
	ActivityLogout        = "logout"
	ActivityTokenReplay   = "token_replay"
	ActivityPasswordReset = "password_reset"
)

// ActivityLog records audit events for a user. Writes are fire-and-forget;
// the session flows never block on them.
type ActivityLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"not null" json:"action"`
	Detail    string    `json:"detail"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName overrides the table name
func (ActivityLog) TableName() string {
	return "activity_logs"
}
