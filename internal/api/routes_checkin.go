package api

import (
	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

type checkInRouteDeps struct {
	Handler     *handlers.CheckInHandler
	RoleChecker middleware.RoleChecker
}

func registerCheckInRoutes(admin *gin.RouterGroup, deps checkInRouteDeps) {
	checkin := admin.Group("/checkin")
	checkin.Use(middleware.RequireRole(deps.RoleChecker, models.RoleAdmin, models.RoleCoordinator))
	{
		checkin.POST("", deps.Handler.ByToken)
		checkin.POST("/code", deps.Handler.ByCode)
	}
}
