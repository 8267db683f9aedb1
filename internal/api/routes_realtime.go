package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/realtime"
)

func registerRealtimeRoutes(r *gin.Engine, hub *realtime.Hub, jwt *iauth.JWTService) {
	if hub == nil {
		return
	}
	r.GET("/ws", handlers.NewRealtimeHandler(hub, jwt).Stream)
}
