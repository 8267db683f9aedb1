package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. KAIZEN_QR_SECRET_KEY.
const EnvPrefix = "KAIZEN"

// Config represents the runtime configuration for the KAIZEN backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	QR          QRConfig          `mapstructure:"qr"`
	Festival    FestivalConfig    `mapstructure:"festival"`
	Contact     ContactConfig     `mapstructure:"contact"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int             `mapstructure:"port"`
	LogLevel    string          `mapstructure:"log_level"`
	LogFormat   string          `mapstructure:"log_format"`
	Environment string          `mapstructure:"environment"`
	CORS        CORSConfig      `mapstructure:"cors"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig bounds requests per client and path.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// QRConfig holds the pass signing secret and rendering options.
type QRConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	ImageSize int    `mapstructure:"image_size"`
}

// FestivalConfig seeds the public festival details.
type FestivalConfig struct {
	Name     string    `mapstructure:"name"`
	StartsAt time.Time `mapstructure:"starts_at"`
	EndsAt   time.Time `mapstructure:"ends_at"`
}

// ContactConfig seeds the WhatsApp contact widget.
type ContactConfig struct {
	WhatsAppNumber  string `mapstructure:"whatsapp_number"`
	WhatsAppMessage string `mapstructure:"whatsapp_message"`
}

// MaintenanceConfig seeds the maintenance gate on first start.
type MaintenanceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Message string `mapstructure:"message"`
}

// AuthConfig captures admin authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
	MFA MFASettings `mapstructure:"mfa"`
}

// MFASettings configures admin TOTP sign-in. An empty encryption key falls
// back to the QR secret, which is stable across restarts.
type MFASettings struct {
	Issuer        string `mapstructure:"issuer"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// AdminConfig is the bootstrap administrator created on an empty database.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// JobsConfig schedules background maintenance.
type JobsConfig struct {
	AuditRetentionDays     int    `mapstructure:"audit_retention_days"`
	AuditSchedule          string `mapstructure:"audit_schedule"`
	PassExpirySchedule     string `mapstructure:"pass_expiry_schedule"`
	StatsBroadcastSchedule string `mapstructure:"stats_broadcast_schedule"`
}

// IsProduction reports whether the server runs in the production environment.
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/kaizen.sqlite")

	v.SetDefault("qr.secret_key", "")
	v.SetDefault("qr.image_size", 320)

	v.SetDefault("festival.name", "KAIZEN")
	v.SetDefault("festival.starts_at", "2026-02-20T09:00:00+05:30")
	v.SetDefault("festival.ends_at", "2026-02-21T18:00:00+05:30")

	v.SetDefault("contact.whatsapp_number", "")
	v.SetDefault("contact.whatsapp_message", "Hi! I have a question about KAIZEN.")

	v.SetDefault("maintenance.enabled", false)
	v.SetDefault("maintenance.message", "We are making a few improvements. Please check back shortly.")

	v.SetDefault("auth.jwt.issuer", "kaizen")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")
	v.SetDefault("auth.mfa.issuer", "KAIZEN Admin")
	v.SetDefault("auth.mfa.encryption_key", "")

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.name", "Festival Admin")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("jobs.audit_retention_days", 90)
	v.SetDefault("jobs.audit_schedule", "@daily")
	v.SetDefault("jobs.pass_expiry_schedule", "@hourly")
	v.SetDefault("jobs.stats_broadcast_schedule", "@every 30s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
