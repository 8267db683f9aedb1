package api

import (
	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

func registerAuditRoutes(admin *gin.RouterGroup, handler *handlers.AuditHandler, checker middleware.RoleChecker) {
	admin.GET("/audit", middleware.RequireRole(checker, models.RoleAdmin), handler.List)
}
