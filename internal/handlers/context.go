package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// actorFromContext describes the caller for audit records.
func actorFromContext(c *gin.Context) services.Actor {
	actor := services.Actor{
		UserID: c.GetString(middleware.CtxUserIDKey),
		Email:  c.GetString(middleware.CtxEmailKey),
	}
	if c.Request != nil {
		actor.IPAddress = c.ClientIP()
		actor.UserAgent = c.Request.UserAgent()
	}
	return actor
}
