package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/realtime"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// RealtimeHandler upgrades HTTP connections into websocket stream subscriptions.
// Anonymous visitors may join the public streams; staff tokens unlock the rest.
type RealtimeHandler struct {
	hub        *realtime.Hub
	jwt        *iauth.JWTService
	public     map[string]struct{}
	staff      map[string]struct{}
	staffRoles []string
}

// NewRealtimeHandler constructs a realtime handler for the named streams.
func NewRealtimeHandler(hub *realtime.Hub, jwt *iauth.JWTService) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hub,
		jwt:    jwt,
		public: realtime.PublicStreams(),
		staff: map[string]struct{}{
			realtime.StreamStats:         {},
			realtime.StreamSettings:      {},
			realtime.StreamRegistrations: {},
		},
		staffRoles: []string{models.RoleAdmin, models.RoleCoordinator},
	}
}

// GET /ws
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	clientID := "anon-" + uuid.NewString()
	allowed := h.public

	if token := streamToken(c); token != "" {
		if h.jwt == nil {
			response.Error(c, errors.ErrUnauthorized)
			return
		}
		claims, err := h.jwt.ValidateAccessToken(token)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized)
			return
		}
		clientID = claims.UserID
		if claims.HasRole(h.staffRoles...) {
			allowed = h.staff
		}
	}

	streams := gatherStreams(c)
	if len(streams) == 0 {
		streams = []string{realtime.StreamStats}
	}

	for _, stream := range streams {
		if _, ok := allowed[stream]; ok {
			continue
		}
		if _, known := h.staff[stream]; known {
			response.Error(c, errors.ErrForbidden)
			return
		}
		response.Error(c, errors.ErrNotFound.WithMessage("unknown stream "+stream))
		return
	}

	h.hub.Serve(clientID, streams, allowed, c.Writer, c.Request)
}

func streamToken(c *gin.Context) string {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	return token
}

func gatherStreams(c *gin.Context) []string {
	var streams []string

	for _, queryStream := range c.QueryArray("stream") {
		if normalized := normalizeStream(queryStream); normalized != "" {
			streams = append(streams, normalized)
		}
	}

	raw := c.Query("streams")
	if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if normalized := normalizeStream(part); normalized != "" {
				streams = append(streams, normalized)
			}
		}
	}

	return uniqueStreams(streams)
}

func normalizeStream(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func uniqueStreams(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
