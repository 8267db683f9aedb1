package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database"
	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/metrics"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/validator"
)

// Setting keys persisted in system_settings.
const (
	SettingMaintenanceMode    = "site.maintenance_mode"
	SettingMaintenanceMessage = "site.maintenance_message"
	SettingWhatsAppNumber     = "contact.whatsapp_number"
	SettingWhatsAppMessage    = "contact.whatsapp_message"
	SettingFestivalName       = "festival.name"
	SettingFestivalStartsAt   = "festival.starts_at"
	SettingRegistrationOpen   = "registration.open"
)

const settingsCacheTTL = 5 * time.Second

// ErrWhatsAppNotConfigured is returned when no contact number has been set.
var ErrWhatsAppNotConfigured = apperrors.New("WHATSAPP_NOT_CONFIGURED", "WhatsApp contact is not configured", http.StatusNotFound)

// SiteSettings is the public view of the site configuration.
type SiteSettings struct {
	FestivalName       string    `json:"festival_name"`
	StartsAt           time.Time `json:"starts_at"`
	MaintenanceMode    bool      `json:"maintenance_mode"`
	MaintenanceMessage string    `json:"maintenance_message,omitempty"`
	RegistrationOpen   bool      `json:"registration_open"`
	WhatsAppNumber     string    `json:"whatsapp_number,omitempty"`
	WhatsAppMessage    string    `json:"whatsapp_message,omitempty"`
}

// UpdateSettingsInput lists the admin editable settings; nil fields are left untouched.
type UpdateSettingsInput struct {
	FestivalName       *string    `json:"festival_name" validate:"omitempty,min=2,max=64"`
	StartsAt           *time.Time `json:"starts_at"`
	RegistrationOpen   *bool      `json:"registration_open"`
	WhatsAppNumber     *string    `json:"whatsapp_number" validate:"omitempty,phone"`
	WhatsAppMessage    *string    `json:"whatsapp_message" validate:"omitempty,max=500"`
	MaintenanceMessage *string    `json:"maintenance_message" validate:"omitempty,max=500"`
}

// Countdown is the time remaining until the festival opens. Configured is
// false, with every other field zero, until festival.starts_at is set.
type Countdown struct {
	StartsAt     time.Time `json:"starts_at"`
	Configured   bool      `json:"configured"`
	Started      bool      `json:"started"`
	Days         int64     `json:"days"`
	Hours        int64     `json:"hours"`
	Minutes      int64     `json:"minutes"`
	Seconds      int64     `json:"seconds"`
	TotalSeconds int64     `json:"total_seconds"`
}

// WhatsAppContact is the click-to-chat link shown by the contact widget.
type WhatsAppContact struct {
	Number  string `json:"number"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// SettingsService reads and writes site settings. Reads are served from a
// short lived in-memory copy that every write invalidates.
type SettingsService struct {
	db        *gorm.DB
	audit     *AuditService
	publisher Publisher
	now       func() time.Time

	mu       sync.RWMutex
	cached   *SiteSettings
	loadedAt time.Time
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(db *gorm.DB, audit *AuditService, publisher Publisher) (*SettingsService, error) {
	if db == nil {
		return nil, errors.New("settings service: db is required")
	}
	return &SettingsService{
		db:        db,
		audit:     audit,
		publisher: publisherOrNop(publisher),
		now:       time.Now,
	}, nil
}

// SeedDefaults writes defaults for every key that has no stored value yet.
func (s *SettingsService) SeedDefaults(ctx context.Context, defaults SiteSettings) error {
	ctx = ensureContext(ctx)

	for key, value := range encodeSettings(defaults) {
		if _, err := database.SeedSystemSetting(ctx, s.db, key, value); err != nil {
			return fmt.Errorf("settings service: seed %s: %w", key, err)
		}
	}
	s.invalidate()
	return nil
}

// Public returns the current site settings.
func (s *SettingsService) Public(ctx context.Context) (SiteSettings, error) {
	s.mu.RLock()
	if s.cached != nil && s.now().Sub(s.loadedAt) < settingsCacheTTL {
		current := *s.cached
		s.mu.RUnlock()
		return current, nil
	}
	s.mu.RUnlock()

	values, err := database.ListSystemSettings(ensureContext(ctx), s.db)
	if err != nil {
		return SiteSettings{}, fmt.Errorf("settings service: load: %w", err)
	}
	current := decodeSettings(values)
	metrics.MaintenanceMode.Set(metrics.BoolGauge(current.MaintenanceMode))

	s.mu.Lock()
	s.cached = &current
	s.loadedAt = s.now()
	s.mu.Unlock()

	return current, nil
}

// Maintenance reports whether the public site is gated and the message to show.
func (s *SettingsService) Maintenance(ctx context.Context) (bool, string, error) {
	current, err := s.Public(ctx)
	if err != nil {
		return false, "", err
	}
	return current.MaintenanceMode, current.MaintenanceMessage, nil
}

// RegistrationOpen reports the global registration switch.
func (s *SettingsService) RegistrationOpen(ctx context.Context) (bool, error) {
	current, err := s.Public(ctx)
	if err != nil {
		return false, err
	}
	return current.RegistrationOpen, nil
}

// SetMaintenance toggles the maintenance gate. An empty message keeps the stored one.
func (s *SettingsService) SetMaintenance(ctx context.Context, enabled bool, message string, actor Actor) (SiteSettings, error) {
	ctx = ensureContext(ctx)

	values := map[string]string{SettingMaintenanceMode: strconv.FormatBool(enabled)}
	if message = strings.TrimSpace(message); message != "" {
		values[SettingMaintenanceMessage] = message
	}

	updated, err := s.write(ctx, values)
	if err != nil {
		recordAudit(s.audit, ctx, actor.entry("settings.maintenance", "settings", AuditFailure, map[string]any{"enabled": enabled}))
		return SiteSettings{}, err
	}

	recordAudit(s.audit, ctx, actor.entry("settings.maintenance", "settings", AuditSuccess, map[string]any{"enabled": enabled}))
	return updated, nil
}

// Update applies the supplied changes after validating them.
func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput, actor Actor) (SiteSettings, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return SiteSettings{}, err
	}

	values := make(map[string]string)
	if input.FestivalName != nil {
		values[SettingFestivalName] = strings.TrimSpace(*input.FestivalName)
	}
	if input.StartsAt != nil {
		values[SettingFestivalStartsAt] = input.StartsAt.Format(time.RFC3339)
	}
	if input.RegistrationOpen != nil {
		values[SettingRegistrationOpen] = strconv.FormatBool(*input.RegistrationOpen)
	}
	if input.WhatsAppNumber != nil {
		values[SettingWhatsAppNumber] = strings.TrimSpace(*input.WhatsAppNumber)
	}
	if input.WhatsAppMessage != nil {
		values[SettingWhatsAppMessage] = strings.TrimSpace(*input.WhatsAppMessage)
	}
	if input.MaintenanceMessage != nil {
		values[SettingMaintenanceMessage] = strings.TrimSpace(*input.MaintenanceMessage)
	}
	if len(values) == 0 {
		return s.Public(ctx)
	}

	updated, err := s.write(ctx, values)
	if err != nil {
		return SiteSettings{}, err
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	recordAudit(s.audit, ctx, actor.entry("settings.update", "settings", AuditSuccess, map[string]any{"keys": keys}))
	return updated, nil
}

// Countdown returns the time left until the festival start at now.
func (s *SettingsService) Countdown(ctx context.Context, now time.Time) (Countdown, error) {
	current, err := s.Public(ctx)
	if err != nil {
		return Countdown{}, err
	}
	return countdownTo(current.StartsAt, now), nil
}

// WhatsAppLink builds the wa.me click-to-chat link for the contact widget.
func (s *SettingsService) WhatsAppLink(ctx context.Context) (WhatsAppContact, error) {
	current, err := s.Public(ctx)
	if err != nil {
		return WhatsAppContact{}, err
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, current.WhatsAppNumber)
	if digits == "" {
		return WhatsAppContact{}, ErrWhatsAppNotConfigured
	}

	link := "https://wa.me/" + digits
	if current.WhatsAppMessage != "" {
		link += "?text=" + strings.ReplaceAll(url.QueryEscape(current.WhatsAppMessage), "+", "%20")
	}

	return WhatsAppContact{
		Number:  digits,
		Message: current.WhatsAppMessage,
		URL:     link,
	}, nil
}

func (s *SettingsService) write(ctx context.Context, values map[string]string) (SiteSettings, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := database.UpsertSystemSetting(ctx, tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SiteSettings{}, fmt.Errorf("settings service: write: %w", err)
	}

	s.invalidate()
	updated, err := s.Public(ctx)
	if err != nil {
		return SiteSettings{}, err
	}
	s.publisher.Publish(StreamSettings, EventSettingsUpdated, updated)
	return updated, nil
}

func (s *SettingsService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func countdownTo(start, now time.Time) Countdown {
	if start.IsZero() {
		return Countdown{}
	}

	out := Countdown{StartsAt: start, Configured: true}
	remaining := start.Sub(now)
	if remaining <= 0 {
		out.Started = true
		return out
	}

	total := int64(remaining / time.Second)
	out.TotalSeconds = total
	out.Days = total / 86400
	out.Hours = total % 86400 / 3600
	out.Minutes = total % 3600 / 60
	out.Seconds = total % 60
	return out
}

func encodeSettings(in SiteSettings) map[string]string {
	values := map[string]string{
		SettingMaintenanceMode:    strconv.FormatBool(in.MaintenanceMode),
		SettingMaintenanceMessage: in.MaintenanceMessage,
		SettingRegistrationOpen:   strconv.FormatBool(in.RegistrationOpen),
		SettingFestivalName:       in.FestivalName,
		SettingWhatsAppNumber:     in.WhatsAppNumber,
		SettingWhatsAppMessage:    in.WhatsAppMessage,
	}
	if !in.StartsAt.IsZero() {
		values[SettingFestivalStartsAt] = in.StartsAt.Format(time.RFC3339)
	}
	return values
}

func decodeSettings(values map[string]string) SiteSettings {
	out := SiteSettings{
		FestivalName:       values[SettingFestivalName],
		MaintenanceMessage: values[SettingMaintenanceMessage],
		WhatsAppNumber:     values[SettingWhatsAppNumber],
		WhatsAppMessage:    values[SettingWhatsAppMessage],
	}
	out.MaintenanceMode, _ = strconv.ParseBool(values[SettingMaintenanceMode])
	if raw, ok := values[SettingRegistrationOpen]; ok {
		out.RegistrationOpen, _ = strconv.ParseBool(raw)
	} else {
		out.RegistrationOpen = true
	}
	if raw := values[SettingFestivalStartsAt]; raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			out.StartsAt = ts
		}
	}
	return out
}
