package database

import (
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.MFASecret{},
		&models.Event{},
		&models.Registration{},
		&models.FestRegistration{},
		&models.AuditLog{},
		&models.SystemSetting{},
	)
}

// SeedData populates the system roles.
func SeedData(db *gorm.DB) error {
	roles := []models.Role{
		{
			ID:          models.RoleAdmin,
			Name:        "Administrator",
			Description: "Manages events, settings and staff",
			IsSystem:    true,
		},
		{
			ID:          models.RoleCoordinator,
			Name:        "Coordinator",
			Description: "Checks participants in at the gate",
			IsSystem:    true,
		},
		{
			ID:          models.RoleUser,
			Name:        "User",
			Description: "Read-only console access",
			IsSystem:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{ID: role.ID}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	return nil
}
