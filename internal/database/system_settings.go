package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return "", nil
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Where(models.SystemSetting{Key: key}).Take(&setting).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where(models.SystemSetting{Key: key}).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// SeedSystemSetting stores value only when key has no value yet. It reports
// whether a row was written.
func SeedSystemSetting(ctx context.Context, db *gorm.DB, key, value string) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("system settings: key is required")
	}

	var existing models.SystemSetting
	err := db.WithContext(ctx).Where(models.SystemSetting{Key: key}).Take(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("system settings: seed %q: %w", key, err)
	}

	if err := db.WithContext(ctx).Create(&models.SystemSetting{Key: key, Value: value}).Error; err != nil {
		return false, fmt.Errorf("system settings: seed %q: %w", key, err)
	}
	return true, nil
}

// ListSystemSettings returns every stored setting keyed by name.
func ListSystemSettings(ctx context.Context, db *gorm.DB) (map[string]string, error) {
	if db == nil {
		return nil, fmt.Errorf("system settings: db is nil")
	}

	var rows []models.SystemSetting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("system settings: list: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
