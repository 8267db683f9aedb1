package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/app"
	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/realtime"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
)

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	Config   *app.Config
	DB       *gorm.DB
	JWT      *iauth.JWTService
	Hub      *realtime.Hub
	Services *services.Container
}

// NewRouter builds the Gin engine, wires middleware and registers the public
// site, registration desk, gate and admin routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services must be provided")
	}
	cfg := deps.Config
	svc := deps.Services

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	r.Use(middleware.MaintenanceGate(svc.Settings, deps.JWT, models.RoleAdmin))

	registerHealthRoutes(r, cfg, deps.DB)
	registerMonitoringRoutes(r, cfg)

	api := r.Group("/api")

	// Admin area: authenticated and role gated per route.
	admin := api.Group("/admin")
	admin.Use(middleware.Auth(deps.JWT))

	registerAuthRoutes(api, authRouteDeps{
		Handler:     handlers.NewAuthHandler(svc.Users, deps.JWT),
		RequireAuth: middleware.Auth(deps.JWT),
	})
	registerSiteRoutes(api, admin, siteRouteDeps{
		Handler:     handlers.NewSiteHandler(svc.Settings, svc.Stats),
		RoleChecker: svc.Users,
	})
	registerEventRoutes(api, admin, eventRouteDeps{
		Handler:     handlers.NewEventHandler(svc.Events),
		RoleChecker: svc.Users,
	})
	registerRegistrationRoutes(api, admin, registrationRouteDeps{
		Handler:     handlers.NewRegistrationHandler(svc.Registrations),
		RoleChecker: svc.Users,
	})
	registerPassRoutes(api, handlers.NewPassHandler(svc.Passes, svc.Registrations))
	registerCheckInRoutes(admin, checkInRouteDeps{
		Handler:     handlers.NewCheckInHandler(svc.CheckIns),
		RoleChecker: svc.Users,
	})
	registerAuditRoutes(admin, handlers.NewAuditHandler(svc.Audit), svc.Users)
	registerRealtimeRoutes(r, deps.Hub, deps.JWT)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
