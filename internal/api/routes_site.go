package api

import (
	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

type siteRouteDeps struct {
	Handler     *handlers.SiteHandler
	RoleChecker middleware.RoleChecker
}

func registerSiteRoutes(api, admin *gin.RouterGroup, deps siteRouteDeps) {
	api.GET("/site", deps.Handler.Site)
	api.GET("/countdown", deps.Handler.Countdown)
	api.GET("/stats", deps.Handler.Stats)
	api.GET("/contact/whatsapp", deps.Handler.WhatsApp)

	requireAdmin := middleware.RequireRole(deps.RoleChecker, models.RoleAdmin)
	admin.PUT("/settings", requireAdmin, deps.Handler.Update)
	admin.POST("/maintenance", requireAdmin, deps.Handler.SetMaintenance)
}
