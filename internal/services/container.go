package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth/mfa"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

// ContainerConfig carries the shared dependencies of the service graph.
type ContainerConfig struct {
	DB            *gorm.DB
	Codec         *qrcodec.Codec
	Publisher     Publisher
	PassImageSize int

	// MFAKey encrypts admin TOTP secrets at rest. Empty disables two-factor
	// enrollment.
	MFAKey    []byte
	MFAIssuer string
}

// Container wires every service the API and background jobs need.
type Container struct {
	Audit         *AuditService
	Settings      *SettingsService
	Stats         *StatsService
	Events        *EventService
	Passes        *PassService
	Registrations *RegistrationService
	CheckIns      *CheckInService
	Users         *UserService
}

// NewContainer constructs the service graph in dependency order.
func NewContainer(cfg ContainerConfig) (*Container, error) {
	if cfg.DB == nil {
		return nil, errors.New("services: db is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("services: qr codec is required")
	}
	publisher := publisherOrNop(cfg.Publisher)

	audit, err := NewAuditService(cfg.DB)
	if err != nil {
		return nil, err
	}
	settings, err := NewSettingsService(cfg.DB, audit, publisher)
	if err != nil {
		return nil, err
	}
	stats, err := NewStatsService(cfg.DB, publisher)
	if err != nil {
		return nil, err
	}
	events, err := NewEventService(cfg.DB, audit, stats)
	if err != nil {
		return nil, err
	}
	passes, err := NewPassService(cfg.Codec, cfg.PassImageSize)
	if err != nil {
		return nil, err
	}
	registrations, err := NewRegistrationService(RegistrationServiceDeps{
		DB:        cfg.DB,
		Events:    events,
		Settings:  settings,
		Passes:    passes,
		Stats:     stats,
		Audit:     audit,
		Publisher: publisher,
	})
	if err != nil {
		return nil, err
	}
	checkins, err := NewCheckInService(CheckInServiceDeps{
		DB:            cfg.DB,
		Passes:        passes,
		Registrations: registrations,
		Stats:         stats,
		Audit:         audit,
		Publisher:     publisher,
	})
	if err != nil {
		return nil, err
	}
	var totp *mfa.TOTPService
	if len(cfg.MFAKey) > 0 {
		totp, err = mfa.NewTOTPService(cfg.DB, cfg.MFAKey, mfa.WithIssuer(cfg.MFAIssuer))
		if err != nil {
			return nil, err
		}
	}
	users, err := NewUserService(cfg.DB, audit, totp)
	if err != nil {
		return nil, err
	}

	return &Container{
		Audit:         audit,
		Settings:      settings,
		Stats:         stats,
		Events:        events,
		Passes:        passes,
		Registrations: registrations,
		CheckIns:      checkins,
		Users:         users,
	}, nil
}
