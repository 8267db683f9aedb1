package qrcodec

import (
	"time"
)

// PassValidity is the advisory lifetime of a pass, counted from its timestamp.
const PassValidity = 30 * 24 * time.Hour

// Payload is the data carried by a registration pass QR code.
// Timestamp and ExpiresAt are epoch milliseconds.
type Payload struct {
	RegistrationID string `json:"registrationId" mapstructure:"registrationId"`
	EventID        string `json:"eventId" mapstructure:"eventId"`
	Name           string `json:"name" mapstructure:"name"`
	Email          string `json:"email" mapstructure:"email"`
	Phone          string `json:"phone" mapstructure:"phone"`
	EventName      string `json:"eventName" mapstructure:"eventName"`
	Timestamp      int64  `json:"timestamp" mapstructure:"timestamp"`
	ExpiresAt      int64  `json:"expiresAt" mapstructure:"expiresAt"`
}

// PayloadInput holds the caller supplied fields of a new payload.
type PayloadInput struct {
	RegistrationID string
	EventID        string
	Name           string
	Email          string
	Phone          string
	EventName      string
}

// IssuedAt returns the payload creation instant.
func (p Payload) IssuedAt() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// ExpiresTime returns the advisory expiry instant.
func (p Payload) ExpiresTime() time.Time {
	return time.UnixMilli(p.ExpiresAt).UTC()
}

// Expired reports whether the pass is past its validity window at now.
func (p Payload) Expired(now time.Time) bool {
	return now.UnixMilli() > p.ExpiresAt
}

func expiryFor(timestamp int64) int64 {
	return timestamp + PassValidity.Milliseconds()
}
