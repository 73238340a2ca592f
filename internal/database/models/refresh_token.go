package models

import (
	"time"
)

// Revocation reasons recorded on refresh tokens
const (
	RevokedReasonRotated        = "rotated"
	RevokedReasonLogout         = "logout"
	RevokedReasonLogoutAll      = "logout_all"
	RevokedReasonPasswordReset  = "password_reset"
	RevokedReasonReplayDetected = "replay_detected"
)

// RefreshToken is a durable, single-use-per-rotation session credential.
// Rotation links successive tokens through ReplacedByToken, forming a chain
// per login session. A revoked row is never revived; expiry is never
// extended in place.
type RefreshToken struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Token       string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedByIP string    `json:"created_by_ip"`

	IsRevoked     bool       `gorm:"not null;default:false;index" json:"is_revoked"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP   string     `json:"revoked_by_ip,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`

	// Forward pointer to the token that superseded this one during rotation.
	// Strictly a successor reference; the revocation reason lives in
	// RevokedReason.
	ReplacedByToken string `json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName overrides the table name
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsExpired reports whether the token is past its expiry at the given instant
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be presented for rotation
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}
