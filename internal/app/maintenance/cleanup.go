package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSpec          = "@daily"
	defaultPassExpirySpec     = "@hourly"
	defaultStatsSpec          = "@every 1m"
)

// Cleaner coordinates background jobs: pruning stale audit logs, expiring
// passes past their validity and pushing periodic stats snapshots.
type Cleaner struct {
	audit         *services.AuditService
	registrations *services.RegistrationService
	stats         *services.StatsService
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	retention     int

	auditSchedule      string
	passExpirySchedule string
	statsSchedule      string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for pass expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithPassExpirySchedule overrides the cron specification for pass expiry.
func WithPassExpirySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.passExpirySchedule = spec
		}
	}
}

// WithStatsSchedule overrides the cron specification for stats broadcasts.
func WithStatsSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.statsSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner from the service container. A nil container
// or service skips the corresponding job.
func NewCleaner(svc *services.Container, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:                time.Now,
		retention:          defaultAuditRetentionDays,
		auditSchedule:      defaultAuditSpec,
		passExpirySchedule: defaultPassExpirySpec,
		statsSchedule:      defaultStatsSpec,
		log:                logger.WithModule("maintenance"),
	}
	if svc != nil {
		cleaner.audit = svc.Audit
		cleaner.registrations = svc.Registrations
		cleaner.stats = svc.Stats
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.audit != nil || c.registrations != nil || c.stats != nil
}

// Start registers jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.cleanupAudit(context.Background()); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.registrations != nil {
		if _, err := c.cron.AddFunc(c.passExpirySchedule, func() {
			if _, err := c.expirePasses(context.Background()); err != nil {
				c.log.Warn("pass expiry failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.stats != nil {
		if _, err := c.cron.AddFunc(c.statsSchedule, func() {
			c.stats.Broadcast(context.Background())
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially. Used in tests and
// during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cleanupAudit(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.registrations != nil {
		if _, err := c.expirePasses(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.stats != nil {
		c.stats.Broadcast(ctx)
	}

	return errs
}

func (c *Cleaner) cleanupAudit(ctx context.Context) (int64, error) {
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	if err == nil && removed > 0 {
		c.log.Info("pruned audit logs", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return removed, err
}

func (c *Cleaner) expirePasses(ctx context.Context) (int64, error) {
	expired, err := c.registrations.ExpirePasses(ctx, c.now())
	if err == nil && expired > 0 {
		c.log.Info("expired passes", zap.Int64("count", expired))
		if c.stats != nil {
			c.stats.Broadcast(ctx)
		}
	}
	return expired, err
}
