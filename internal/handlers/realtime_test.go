package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/realtime"
)

func newRealtimeFixture(t *testing.T) (*realtime.Hub, *iauth.JWTService, *RealtimeHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := realtime.NewHub()
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)
	return hub, jwtSvc, NewRealtimeHandler(hub, jwtSvc)
}

func serveStream(handler *RealtimeHandler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	handler.Stream(c)
	return rec
}

func TestRealtimeHandlerRejectsInvalidToken(t *testing.T) {
	_, _, handler := newRealtimeFixture(t)

	rec := serveStream(handler, "/ws?stream=stats&token=garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRealtimeHandlerRegistrationsRequireStaff(t *testing.T) {
	_, jwtSvc, handler := newRealtimeFixture(t)

	rec := serveStream(handler, "/ws?stream=registrations")
	require.Equal(t, http.StatusForbidden, rec.Code)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-1", Roles: []string{"user"}})
	require.NoError(t, err)
	rec = serveStream(handler, "/ws?stream=registrations&token="+token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRealtimeHandlerRejectsUnknownStream(t *testing.T) {
	_, jwtSvc, handler := newRealtimeFixture(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "admin-1", Roles: []string{"admin"}})
	require.NoError(t, err)

	rec := serveStream(handler, "/ws?stream=unknown&token="+token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRealtimeHandlerDeliversPublicStats(t *testing.T) {
	hub, _, handler := newRealtimeFixture(t)

	r := gin.New()
	r.GET("/ws", handler.Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?streams=stats"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return hub.Subscribers(realtime.StreamStats) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(realtime.StreamStats, "stats.updated", map[string]int{"participants": 3})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg realtime.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, realtime.StreamStats, msg.Stream)
	require.Equal(t, "stats.updated", msg.Event)
}
