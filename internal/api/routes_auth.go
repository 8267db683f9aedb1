package api

import (
	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
)

type authRouteDeps struct {
	Handler     *handlers.AuthHandler
	RequireAuth gin.HandlerFunc
}

func registerAuthRoutes(api *gin.RouterGroup, deps authRouteDeps) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.Handler.Login)
		auth.GET("/me", deps.RequireAuth, deps.Handler.Me)

		mfa := auth.Group("/mfa", deps.RequireAuth)
		mfa.POST("/enroll", deps.Handler.EnrollMFA)
		mfa.POST("/confirm", deps.Handler.ConfirmMFA)
		mfa.DELETE("", deps.Handler.DisableMFA)
	}
}
