package api

import (
	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

type registrationRouteDeps struct {
	Handler     *handlers.RegistrationHandler
	RoleChecker middleware.RoleChecker
}

func registerRegistrationRoutes(api, admin *gin.RouterGroup, deps registrationRouteDeps) {
	registrations := api.Group("/registrations")
	{
		registrations.POST("", deps.Handler.Register)
		registrations.POST("/fest", deps.Handler.RegisterFest)
	}

	staff := middleware.RequireRole(deps.RoleChecker, models.RoleAdmin, models.RoleCoordinator)
	admin.GET("/registrations", staff, deps.Handler.List)
	admin.GET("/registrations/:id", staff, deps.Handler.Get)
	admin.GET("/fest-registrations", staff, deps.Handler.ListFest)
	admin.POST("/registrations/:id/cancel", middleware.RequireRole(deps.RoleChecker, models.RoleAdmin), deps.Handler.Cancel)
}
