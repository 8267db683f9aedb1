package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubRoleChecker struct {
	roles map[string][]string
	err   error
}

func (s stubRoleChecker) HasRole(_ context.Context, userID string, roles ...string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, held := range s.roles[userID] {
		for _, role := range roles {
			if held == role {
				return true, nil
			}
		}
	}
	return false, nil
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT(t)

	checker := stubRoleChecker{roles: map[string][]string{
		"gate-1":  {"coordinator"},
		"admin-1": {"admin"},
		// revoked since the token was issued
		"former": {},
	}}

	r := gin.New()
	r.GET("/checkin", Auth(jwtSvc), RequireRole(checker, "admin", "coordinator"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/settings", Auth(jwtSvc), RequireRole(checker, "admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"coordinator at gate", "/checkin", issueToken(t, jwtSvc, "gate-1", "coordinator"), http.StatusOK},
		{"admin at gate", "/checkin", issueToken(t, jwtSvc, "admin-1", "admin"), http.StatusOK},
		{"coordinator on settings", "/settings", issueToken(t, jwtSvc, "gate-1", "coordinator"), http.StatusForbidden},
		{"revoked role", "/checkin", issueToken(t, jwtSvc, "former", "coordinator"), http.StatusForbidden},
		{"anonymous", "/checkin", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireRoleCheckerFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT(t)

	r := gin.New()
	r.GET("/checkin", Auth(jwtSvc), RequireRole(stubRoleChecker{err: errors.New("db down")}, "admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/checkin", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, jwtSvc, "admin-1", "admin"))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireRoleFallsBackToClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT(t)

	r := gin.New()
	r.GET("/checkin", Auth(jwtSvc), RequireRole(nil, "coordinator"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/checkin", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, jwtSvc, "gate-1", "coordinator"))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
