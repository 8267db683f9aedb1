package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/api"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/app"
	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	sharedtestutil "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database/testutil"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/realtime"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/crypto"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// QRSecret signs passes issued inside handler tests.
const QRSecret = "handler-test-qr-secret"

// FestivalStart is the seeded countdown target.
var FestivalStart = time.Date(2027, time.February, 20, 9, 0, 0, 0, time.UTC)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Codec    *qrcodec.Codec
	Hub      *realtime.Hub
	Services *services.Container
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	codec, err := qrcodec.New(QRSecret)
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		QR: app.QRConfig{SecretKey: QRSecret, ImageSize: 256},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	hub := realtime.NewHub()
	container, err := services.NewContainer(services.ContainerConfig{
		DB:            db,
		Codec:         codec,
		Publisher:     hub,
		PassImageSize: cfg.QR.ImageSize,
		MFAKey:        crypto.DeriveKey(QRSecret),
		MFAIssuer:     "KAIZEN Test",
	})
	require.NoError(t, err)

	require.NoError(t, container.Settings.SeedDefaults(context.Background(), services.SiteSettings{
		FestivalName:       "KAIZEN",
		StartsAt:           FestivalStart,
		RegistrationOpen:   true,
		MaintenanceMessage: "Back soon",
		WhatsAppNumber:     "+91 98765 43210",
		WhatsAppMessage:    "Hi KAIZEN team",
	}))

	router, err := api.NewRouter(api.Dependencies{
		Config:   cfg,
		DB:       db,
		JWT:      jwtSvc,
		Hub:      hub,
		Services: container,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Codec:    codec,
		Hub:      hub,
		Services: container,
	}
}

// CreateUser provisions an active admin console user holding roles.
func (e *Env) CreateUser(email, password string, roles ...string) *models.User {
	e.T.Helper()

	user, err := e.Services.Users.Create(context.Background(), services.CreateUserInput{
		Email:    email,
		Name:     "Test " + email,
		Password: password,
		Roles:    roles,
	})
	require.NoError(e.T, err)
	return user
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID    string   `json:"id"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	} `json:"user"`
}

// Login authenticates through the API and returns the issued access token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Greater(e.T, result.ExpiresIn, 0)
	return result
}

// AdminToken creates an admin user and returns a signed-in access token.
func (e *Env) AdminToken() string {
	e.T.Helper()
	e.CreateUser("admin@kaizen.test", "AdminPassw0rd!", models.RoleAdmin)
	return e.Login("admin@kaizen.test", "AdminPassw0rd!").AccessToken
}

// CoordinatorToken creates a coordinator and returns a signed-in access token.
func (e *Env) CoordinatorToken() string {
	e.T.Helper()
	e.CreateUser("gate@kaizen.test", "GatePassw0rd!", models.RoleCoordinator)
	return e.Login("gate@kaizen.test", "GatePassw0rd!").AccessToken
}

// CreateEvent inserts an open event through the service layer.
func (e *Env) CreateEvent(name string) *models.Event {
	e.T.Helper()
	event, err := e.Services.Events.Create(context.Background(), services.CreateEventInput{Name: name}, services.Actor{})
	require.NoError(e.T, err)
	return event
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
