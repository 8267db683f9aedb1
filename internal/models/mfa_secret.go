package models

import (
	"time"

	"gorm.io/datatypes"
)

// MFASecret holds an admin's encrypted TOTP seed and hashed backup codes.
// ConfirmedAt stays nil until the first code from the authenticator app is
// accepted; only confirmed secrets gate sign-in.
type MFASecret struct {
	BaseModel

	UserID      string                      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Secret      string                      `gorm:"not null" json:"-"`
	BackupCodes datatypes.JSONSlice[string] `json:"-"`
	ConfirmedAt *time.Time                  `json:"confirmed_at"`
	LastUsedAt  *time.Time                  `json:"last_used_at"`
}
