package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/api"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/app"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/app/maintenance"
	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/realtime"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Services *services.Container
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	codec, err := qrcodec.New(cfg.QR.SecretKey, qrcodec.WithLogger(logger.WithModule("qrcodec")))
	if err != nil {
		return nil, fmt.Errorf("initialise qr codec: %w", err)
	}

	stack.Hub = realtime.NewHub(realtime.WithAllowedOrigins(cfg.Server.CORS.AllowedOrigins))

	stack.Services, err = services.NewContainer(services.ContainerConfig{
		DB:            stack.DB,
		Codec:         codec,
		Publisher:     stack.Hub,
		PassImageSize: cfg.QR.ImageSize,
		MFAKey:        cfg.MFAKey(),
		MFAIssuer:     cfg.Auth.MFA.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	if err := seedSiteDefaults(ctx, stack.Services, cfg); err != nil {
		return nil, err
	}

	created, err := stack.Services.Users.EnsureBootstrapAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
	if err != nil {
		return nil, fmt.Errorf("bootstrap admin user: %w", err)
	}
	if created {
		log.Info("bootstrap admin created", zap.String("email", cfg.Admin.Email))
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Services,
		maintenance.WithAuditRetentionDays(cfg.Jobs.AuditRetentionDays),
		maintenance.WithAuditSchedule(cfg.Jobs.AuditSchedule),
		maintenance.WithPassExpirySchedule(cfg.Jobs.PassExpirySchedule),
		maintenance.WithStatsSchedule(cfg.Jobs.StatsBroadcastSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:   cfg,
		DB:       stack.DB,
		JWT:      jwtSvc,
		Hub:      stack.Hub,
		Services: stack.Services,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// seedSiteDefaults stores the configured festival, contact and maintenance
// values for keys that have never been set. Values edited by admins win.
func seedSiteDefaults(ctx context.Context, svc *services.Container, cfg *app.Config) error {
	if err := svc.Settings.SeedDefaults(ctx, services.SiteSettings{
		FestivalName:       strings.TrimSpace(cfg.Festival.Name),
		StartsAt:           cfg.Festival.StartsAt,
		MaintenanceMode:    cfg.Maintenance.Enabled,
		MaintenanceMessage: strings.TrimSpace(cfg.Maintenance.Message),
		RegistrationOpen:   true,
		WhatsAppNumber:     strings.TrimSpace(cfg.Contact.WhatsAppNumber),
		WhatsAppMessage:    strings.TrimSpace(cfg.Contact.WhatsAppMessage),
	}); err != nil {
		return fmt.Errorf("seed site settings: %w", err)
	}
	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = cfg.Database.Postgres.Password
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = cfg.Database.MySQL.Password
	default:
		// unsupported drivers surface from database.Open
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
