package model

import "time"

// ResetCode is a one-time numeric code that unlocks a password change for
// Email. Only the newest row per email is ever considered.
type ResetCode struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Email     string    `gorm:"index;size:255;not null"`
	Code      string    `gorm:"size:10;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// IsActive reports whether the code can still be verified at now.
func (r *ResetCode) IsActive(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}
