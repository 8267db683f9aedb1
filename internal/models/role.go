package models

import "time"

// System role identifiers.
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleUser        = "user"
)

// Role groups admin console capabilities. IDs are stable slugs rather than UUIDs
// so route guards can reference them directly.
type Role struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `gorm:"default:false" json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Users []User `gorm:"many2many:user_roles;" json:"users,omitempty"`
}
