package models

import (
	"time"

	"gorm.io/datatypes"
)

// RegistrationStatus tracks a pass through its lifecycle.
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCheckedIn RegistrationStatus = "checked_in"
	StatusCancelled RegistrationStatus = "cancelled"
	StatusExpired   RegistrationStatus = "expired"
)

// Pass holds the QR pass state shared by individual and fest registrations.
type Pass struct {
	Status           RegistrationStatus `gorm:"size:16;index;not null" json:"status"`
	QRToken          string             `gorm:"type:text" json:"qr_token,omitempty"`
	VerificationCode string             `gorm:"size:8;index" json:"verification_code,omitempty"`
	PassIssuedAt     time.Time          `json:"pass_issued_at"`
	PassExpiresAt    time.Time          `gorm:"index" json:"pass_expires_at"`
	CheckedInAt      *time.Time         `json:"checked_in_at,omitempty"`
	CheckedInBy      *string            `gorm:"type:uuid" json:"checked_in_by,omitempty"`
}

// CanCheckIn reports whether the pass may still be admitted at the gate.
func (p *Pass) CanCheckIn() bool {
	return p.Status == StatusPending || p.Status == StatusConfirmed || p.Status == StatusExpired
}

// Registration is an individual sign-up for one event.
type Registration struct {
	BaseModel

	EventID string `gorm:"type:uuid;not null;uniqueIndex:idx_registration_event_email" json:"event_id"`
	Event   *Event `json:"event,omitempty"`

	FullName    string                      `gorm:"not null" json:"full_name"`
	Email       string                      `gorm:"not null;uniqueIndex:idx_registration_event_email" json:"email"`
	Phone       string                      `json:"phone"`
	College     string                      `gorm:"index" json:"college"`
	Year        int                         `json:"year"`
	TeamName    string                      `json:"team_name,omitempty"`
	TeamMembers datatypes.JSONSlice[string] `json:"team_members,omitempty"`

	Pass
}

// FestRegistration is a bundle sign-up covering several events with one pass.
type FestRegistration struct {
	BaseModel

	FullName string                      `gorm:"not null" json:"full_name"`
	Email    string                      `gorm:"uniqueIndex;not null" json:"email"`
	Phone    string                      `json:"phone"`
	College  string                      `gorm:"index" json:"college"`
	Year     int                         `json:"year"`
	EventIDs datatypes.JSONSlice[string] `json:"event_ids"`

	Pass
}
