package api

import (
	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

type eventRouteDeps struct {
	Handler     *handlers.EventHandler
	RoleChecker middleware.RoleChecker
}

func registerEventRoutes(api, admin *gin.RouterGroup, deps eventRouteDeps) {
	events := api.Group("/events")
	{
		events.GET("", deps.Handler.List)
		events.GET("/:id", deps.Handler.Get)
	}

	manage := admin.Group("/events")
	manage.Use(middleware.RequireRole(deps.RoleChecker, models.RoleAdmin))
	{
		manage.GET("", deps.Handler.AdminList)
		manage.POST("", deps.Handler.Create)
		manage.PATCH("/:id", deps.Handler.Update)
		manage.POST("/:id/registration", deps.Handler.SetRegistrationOpen)
	}
}
