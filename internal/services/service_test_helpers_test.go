package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth/mfa"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database/testutil"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/crypto"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

const testQRSecret = "test-qr-secret"

type publishedMessage struct {
	Stream string
	Event  string
	Data   any
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(stream, event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{Stream: stream, Event: event, Data: data})
}

func (p *recordingPublisher) events(stream string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, msg := range p.messages {
		if msg.Stream == stream {
			out = append(out, msg.Event)
		}
	}
	return out
}

func (p *recordingPublisher) last(stream string) (publishedMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.messages) - 1; i >= 0; i-- {
		if p.messages[i].Stream == stream {
			return p.messages[i], true
		}
	}
	return publishedMessage{}, false
}

type testServices struct {
	db            *gorm.DB
	codec         *qrcodec.Codec
	publisher     *recordingPublisher
	audit         *AuditService
	settings      *SettingsService
	stats         *StatsService
	events        *EventService
	passes        *PassService
	registrations *RegistrationService
	checkins      *CheckInService
	users         *UserService
}

var testFestivalStart = time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC)

// testOTPTime is the fixed clock of the TOTP service used by user tests.
var testOTPTime = time.Date(2026, time.February, 19, 18, 30, 0, 0, time.UTC)

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	publisher := &recordingPublisher{}

	codec, err := qrcodec.New(testQRSecret)
	require.NoError(t, err)

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	settings, err := NewSettingsService(db, audit, publisher)
	require.NoError(t, err)
	stats, err := NewStatsService(db, publisher)
	require.NoError(t, err)
	events, err := NewEventService(db, audit, stats)
	require.NoError(t, err)
	passes, err := NewPassService(codec, 256)
	require.NoError(t, err)
	registrations, err := NewRegistrationService(RegistrationServiceDeps{
		DB:        db,
		Events:    events,
		Settings:  settings,
		Passes:    passes,
		Stats:     stats,
		Audit:     audit,
		Publisher: publisher,
	})
	require.NoError(t, err)
	checkins, err := NewCheckInService(CheckInServiceDeps{
		DB:            db,
		Passes:        passes,
		Registrations: registrations,
		Stats:         stats,
		Audit:         audit,
		Publisher:     publisher,
	})
	require.NoError(t, err)
	totp, err := mfa.NewTOTPService(db, crypto.DeriveKey("test-mfa-key"), mfa.WithClock(func() time.Time { return testOTPTime }))
	require.NoError(t, err)
	users, err := NewUserService(db, audit, totp)
	require.NoError(t, err)

	require.NoError(t, settings.SeedDefaults(context.Background(), SiteSettings{
		FestivalName:       "KAIZEN",
		StartsAt:           testFestivalStart,
		RegistrationOpen:   true,
		MaintenanceMessage: "Back soon",
	}))

	return &testServices{
		db:            db,
		codec:         codec,
		publisher:     publisher,
		audit:         audit,
		settings:      settings,
		stats:         stats,
		events:        events,
		passes:        passes,
		registrations: registrations,
		checkins:      checkins,
		users:         users,
	}
}

func (ts *testServices) createEvent(t *testing.T, input CreateEventInput) *models.Event {
	t.Helper()
	event, err := ts.events.Create(context.Background(), input, Actor{Email: "admin@kaizen.test"})
	require.NoError(t, err)
	return event
}

func (ts *testServices) register(t *testing.T, eventID, email string) *RegistrationResult {
	t.Helper()
	result, err := ts.registrations.Register(context.Background(), registerInput(eventID, email))
	require.NoError(t, err)
	return result
}

func registerInput(eventID, email string) RegisterInput {
	return RegisterInput{
		EventID:  eventID,
		FullName: "Asha Patil",
		Email:    email,
		Phone:    "+91 98765 43210",
		College:  "RIT Islampur",
		Year:     2,
	}
}

func boolPtr(v bool) *bool       { return &v }
func stringPtr(v string) *string { return &v }
func intPtr(v int) *int          { return &v }
