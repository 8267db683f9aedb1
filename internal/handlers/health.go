package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// Health reports liveness and, when a database is supplied, whether it answers pings.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{
			"status":     "ok",
			"checked_at": time.Now().UTC(),
		}
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				payload["status"] = "degraded"
				payload["database"] = "unreachable"
				response.Success(c, http.StatusServiceUnavailable, payload)
				return
			}
			payload["database"] = "ok"
		}
		response.Success(c, http.StatusOK, payload)
	}
}
