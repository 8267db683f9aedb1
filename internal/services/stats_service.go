package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
)

// Snapshot is the public counter set shown on the landing page.
type Snapshot struct {
	Events            int64     `json:"events"`
	Registrations     int64     `json:"registrations"`
	FestRegistrations int64     `json:"fest_registrations"`
	Participants      int64     `json:"participants"`
	CheckedIn         int64     `json:"checked_in"`
	Colleges          int64     `json:"colleges"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// StatsService aggregates live festival counters.
type StatsService struct {
	db        *gorm.DB
	publisher Publisher
	now       func() time.Time
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *gorm.DB, publisher Publisher) (*StatsService, error) {
	if db == nil {
		return nil, errors.New("stats service: db is required")
	}
	return &StatsService{db: db, publisher: publisherOrNop(publisher), now: time.Now}, nil
}

// Snapshot counts active events, live registrations and distinct colleges.
// Cancelled registrations are excluded everywhere.
func (s *StatsService) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	var out Snapshot
	if err := db.Model(&models.Event{}).Where("is_active = ?", true).Count(&out.Events).Error; err != nil {
		return Snapshot{}, fmt.Errorf("stats service: count events: %w", err)
	}
	if err := db.Model(&models.Registration{}).Where("status <> ?", models.StatusCancelled).Count(&out.Registrations).Error; err != nil {
		return Snapshot{}, fmt.Errorf("stats service: count registrations: %w", err)
	}
	if err := db.Model(&models.FestRegistration{}).Where("status <> ?", models.StatusCancelled).Count(&out.FestRegistrations).Error; err != nil {
		return Snapshot{}, fmt.Errorf("stats service: count fest registrations: %w", err)
	}

	var checkedEvent, checkedFest int64
	if err := db.Model(&models.Registration{}).Where("status = ?", models.StatusCheckedIn).Count(&checkedEvent).Error; err != nil {
		return Snapshot{}, fmt.Errorf("stats service: count check-ins: %w", err)
	}
	if err := db.Model(&models.FestRegistration{}).Where("status = ?", models.StatusCheckedIn).Count(&checkedFest).Error; err != nil {
		return Snapshot{}, fmt.Errorf("stats service: count fest check-ins: %w", err)
	}

	if err := db.Raw(`SELECT COUNT(*) FROM (
		SELECT LOWER(TRIM(college)) AS name FROM registrations WHERE college <> '' AND status <> ?
		UNION
		SELECT LOWER(TRIM(college)) AS name FROM fest_registrations WHERE college <> '' AND status <> ?
	) AS colleges`, models.StatusCancelled, models.StatusCancelled).Scan(&out.Colleges).Error; err != nil {
		return Snapshot{}, fmt.Errorf("stats service: count colleges: %w", err)
	}

	out.Participants = out.Registrations + out.FestRegistrations
	out.CheckedIn = checkedEvent + checkedFest
	out.GeneratedAt = s.now().UTC()
	return out, nil
}

// Broadcast publishes a fresh snapshot on the stats stream. Failures are logged only.
func (s *StatsService) Broadcast(ctx context.Context) {
	if s == nil {
		return
	}
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		logger.WithModule("stats").Warn("failed to compute stats snapshot", zap.Error(err))
		return
	}
	s.publisher.Publish(StreamStats, EventStatsUpdated, snapshot)
}
