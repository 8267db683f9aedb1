package models

import "time"

// Event categories shown on the public site.
const (
	CategoryTechnical    = "technical"
	CategoryNonTechnical = "non-technical"
	CategoryWorkshop     = "workshop"
	CategoryCultural     = "cultural"
	CategoryGaming       = "gaming"
)

// Event is a single competition or workshop participants can register for.
type Event struct {
	BaseModel

	Name        string     `gorm:"not null" json:"name"`
	Slug        string     `gorm:"uniqueIndex;size:96;not null" json:"slug"`
	Category    string     `gorm:"index;size:32" json:"category"`
	Description string     `gorm:"type:text" json:"description"`
	Venue       string     `json:"venue"`
	StartsAt    *time.Time `json:"starts_at"`

	Fee             int `json:"fee"`
	TeamSize        int `gorm:"not null" json:"team_size"`
	MaxParticipants int `json:"max_participants"`

	IsActive         bool `gorm:"not null;index" json:"is_active"`
	RegistrationOpen bool `gorm:"not null" json:"registration_open"`
}

// HasCapacity reports whether another registration fits given the current count.
// A zero MaxParticipants means unlimited.
func (e *Event) HasCapacity(current int64) bool {
	return e.MaxParticipants <= 0 || current < int64(e.MaxParticipants)
}

// AcceptsRegistrations reports whether the event itself is open for sign-ups.
func (e *Event) AcceptsRegistrations() bool {
	return e.IsActive && e.RegistrationOpen
}
