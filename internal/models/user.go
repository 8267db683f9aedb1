package models

import (
	"time"
)

// User is an admin console account. Festival participants never log in.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `json:"name"`
	Password string `gorm:"not null" json:"-"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	MFAEnabled bool       `gorm:"default:false" json:"mfa_enabled"`
	MFASecret  *MFASecret `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	Roles []Role `gorm:"many2many:user_roles;" json:"roles,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`
}

// RoleIDs lists the identifiers of the loaded roles.
func (u *User) RoleIDs() []string {
	ids := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		ids = append(ids, role.ID)
	}
	return ids
}
