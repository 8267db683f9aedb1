package maintenance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database/testutil"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

type countingPublisher struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *countingPublisher) Publish(stream, _ string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[stream]++
}

func (p *countingPublisher) count(stream string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[stream]
}

func newTestContainer(t *testing.T, publisher services.Publisher) (*services.Container, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	codec, err := qrcodec.New("cleanup-secret")
	require.NoError(t, err)

	svc, err := services.NewContainer(services.ContainerConfig{DB: db, Codec: codec, Publisher: publisher})
	require.NoError(t, err)
	require.NoError(t, svc.Settings.SeedDefaults(context.Background(), services.SiteSettings{
		FestivalName:     "KAIZEN",
		StartsAt:         time.Date(2027, time.February, 20, 9, 0, 0, 0, time.UTC),
		RegistrationOpen: true,
	}))
	return svc, db
}

func TestCleanerRunOnce(t *testing.T) {
	publisher := &countingPublisher{}
	svc, _ := newTestContainer(t, publisher)
	ctx := context.Background()
	clock := fixedClock{current: time.Now().UTC()}

	event, err := svc.Events.Create(ctx, services.CreateEventInput{Name: "Robo Race"}, services.Actor{Email: "admin@kaizen.test"})
	require.NoError(t, err)

	register := func(email string) *services.RegistrationResult {
		result, err := svc.Registrations.Register(ctx, services.RegisterInput{
			EventID:  event.ID,
			FullName: "Asha Patil",
			Email:    email,
			Phone:    "+91 98765 43210",
			College:  "RIT Islampur",
		})
		require.NoError(t, err)
		return result
	}
	first := register("first@example.com")
	second := register("second@example.com")

	require.NoError(t, svc.Audit.Log(ctx, services.AuditEntry{Action: "test.action", Result: services.AuditSuccess, Actor: "tester"}))

	c := NewCleaner(svc,
		WithNow(clock.Now),
		WithAuditRetentionDays(7),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NotNil(t, c)

	// Nothing has aged yet.
	require.NoError(t, c.RunOnce(ctx))
	holder, err := svc.Registrations.Lookup(ctx, first.Registration.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, holder.Pass.Status)

	clock.current = clock.current.Add(qrcodec.PassValidity + time.Hour)
	before := publisher.count(services.StreamStats)
	require.NoError(t, c.RunOnce(ctx))
	require.Greater(t, publisher.count(services.StreamStats), before)

	for _, id := range []string{first.Registration.ID, second.Registration.ID} {
		holder, err := svc.Registrations.Lookup(ctx, id)
		require.NoError(t, err)
		require.Equal(t, models.StatusExpired, holder.Pass.Status)
	}
}

func TestCleanerPrunesAuditLogs(t *testing.T) {
	svc, db := newTestContainer(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Audit.Log(ctx, services.AuditEntry{Action: "old.action", Result: services.AuditSuccess, Actor: "tester"}))
	require.NoError(t, svc.Audit.Log(ctx, services.AuditEntry{Action: "new.action", Result: services.AuditSuccess, Actor: "tester"}))

	logs, total, err := svc.Audit.List(ctx, services.AuditListOptions{Filters: services.AuditFilters{Action: "old.action"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("id = ?", logs[0].ID).
		Update("created_at", time.Now().AddDate(0, 0, -10)).Error)

	c := NewCleaner(svc, WithAuditRetentionDays(7))
	require.NoError(t, c.RunOnce(ctx))

	_, total, err = svc.Audit.List(ctx, services.AuditListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	svc, _ := newTestContainer(t, nil)
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))

	c := NewCleaner(svc, WithCron(scheduler), WithStatsSchedule("@every 30s"))
	require.NoError(t, c.Start())
	t.Cleanup(func() { <-c.Stop().Done() })

	require.Len(t, scheduler.Entries(), 3)
}

func TestCleanerRejectsInvalidSchedule(t *testing.T) {
	svc, _ := newTestContainer(t, nil)

	c := NewCleaner(svc, WithAuditSchedule("not a schedule"))
	require.Error(t, c.Start())
}

func TestCleanerWithoutServicesIsNoop(t *testing.T) {
	c := NewCleaner(nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
	<-c.Stop().Done()
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
