package api

import (
	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/handlers"
)

func registerPassRoutes(api *gin.RouterGroup, handler *handlers.PassHandler) {
	passes := api.Group("/passes")
	{
		passes.GET("/qr.png", handler.ImageByQuery)
		passes.GET("/:token/qr.png", handler.Image)
		passes.POST("/verify", handler.Verify)
	}
}
