package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/metrics"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// RoleChecker resolves role membership for a user against the store.
type RoleChecker interface {
	HasRole(ctx context.Context, userID string, roles ...string) (bool, error)
}

// RequireRole allows the request when the authenticated user holds any of
// roles. Membership is re-checked against the store so revoked or
// deactivated accounts lose access before their token expires.
func RequireRole(checker RoleChecker, roles ...string) gin.HandlerFunc {
	label := strings.Join(roles, "|")

	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed := claims.HasRole(roles...)
		if checker != nil {
			ok, err := checker.HasRole(c.Request.Context(), claims.UserID, roles...)
			if err != nil {
				metrics.RoleChecks.WithLabelValues(label, "error").Inc()
				logger.WithModule("http").Error("role check failed",
					zap.String("user_id", claims.UserID),
					zap.Error(err),
				)
				response.Error(c, errors.ErrInternalServer)
				c.Abort()
				return
			}
			allowed = ok
		}

		if !allowed {
			metrics.RoleChecks.WithLabelValues(label, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.RoleChecks.WithLabelValues(label, "allowed").Inc()
		c.Next()
	}
}
