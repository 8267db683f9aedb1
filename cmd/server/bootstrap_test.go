package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/app"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "kaizen.sqlite"),
		},
		QR:       app.QRConfig{SecretKey: "bootstrap-qr-secret", ImageSize: 256},
		Festival: app.FestivalConfig{Name: "KAIZEN", StartsAt: time.Date(2027, time.February, 20, 9, 0, 0, 0, time.UTC)},
		Contact:  app.ContactConfig{WhatsAppNumber: "+91 98765 43210", WhatsAppMessage: "Hello"},
		Maintenance: app.MaintenanceConfig{
			Message: "Back soon",
		},
		Auth:  app.AuthConfig{JWT: app.JWTSettings{Secret: "bootstrap-jwt-secret", Issuer: "kaizen"}},
		Admin: app.AdminConfig{Email: "root@kaizen.test", Password: "RootPassw0rd!", Name: "Root"},
		Monitoring: app.MonitoringConfig{
			Health: app.HealthConfig{Enabled: true},
		},
		Jobs: app.JobsConfig{AuditRetentionDays: 30},
	}
}

func TestBootstrapRuntime(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	stack, err := bootstrapRuntime(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Router)
	require.NotNil(t, stack.Hub)

	ok, err := stack.Services.Users.HasRole(ctx, adminID(t, stack), models.RoleAdmin)
	require.NoError(t, err)
	require.True(t, ok)

	site, err := stack.Services.Settings.Public(ctx)
	require.NoError(t, err)
	require.Equal(t, "KAIZEN", site.FestivalName)
	require.Equal(t, "+91 98765 43210", site.WhatsAppNumber)
	require.True(t, site.RegistrationOpen)

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSeedSiteDefaultsPreservesEditedValues(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	stack, err := bootstrapRuntime(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NoError(t, database.UpsertSystemSetting(ctx, stack.DB, services.SettingWhatsAppNumber, "+91 90000 00000"))

	cfg.Contact.WhatsAppNumber = "+91 11111 11111"
	cfg.Maintenance.Enabled = true
	require.NoError(t, seedSiteDefaults(ctx, stack.Services, cfg))

	value, err := database.GetSystemSetting(ctx, stack.DB, services.SettingWhatsAppNumber)
	require.NoError(t, err)
	require.Equal(t, "+91 90000 00000", value)

	mode, err := database.GetSystemSetting(ctx, stack.DB, services.SettingMaintenanceMode)
	require.NoError(t, err)
	require.Equal(t, "false", mode)
}

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{Database: app.DatabaseConfig{
		Driver: " PostgreSQL ",
		Postgres: app.DBAuthConfig{
			Host:     "db.internal",
			Port:     5432,
			Database: "kaizen",
			Username: "kaizen",
			Password: "secret",
		},
	}}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "kaizen", dbCfg.Name)

	require.Equal(t, "sqlite", convertDatabaseConfig(&app.Config{}).Driver)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func adminID(t *testing.T, stack *runtimeStack) string {
	t.Helper()
	var user models.User
	require.NoError(t, stack.DB.Where("email = ?", "root@kaizen.test").Take(&user).Error)
	return user.ID
}
