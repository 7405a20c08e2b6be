package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID                  uint64
	Fullname            string
	Email               string
	PasswordHash        string
	ImagePath           string
	ResetToken          sql.NullString
	ResetTokenExpiresAt sql.NullTime
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasActiveResetToken reports whether a reset token is set and still valid at now.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.ResetToken.Valid && u.ResetTokenExpiresAt.Valid && !now.After(u.ResetTokenExpiresAt.Time)
}

// ClearResetToken drops both reset fields together.
func (u *User) ClearResetToken() {
	u.ResetToken = sql.NullString{Valid: false}
	u.ResetTokenExpiresAt = sql.NullTime{Valid: false}
}
