package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxEmailKey  = "userEmail"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := ClaimsFromRequest(c, jwt); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// ClaimsFromRequest returns the claims already attached to the context, or
// validates the bearer token when none are attached yet.
func ClaimsFromRequest(c *gin.Context, jwt *iauth.JWTService) (*iauth.Claims, bool) {
	if claims := CurrentClaims(c); claims != nil {
		return claims, true
	}
	if jwt == nil {
		return nil, false
	}
	token, ok := bearerToken(c)
	if !ok {
		return nil, false
	}
	claims, err := jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// CurrentClaims returns the authenticated claims, or nil for anonymous requests.
func CurrentClaims(c *gin.Context) *iauth.Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*iauth.Claims)
	return claims
}

func setClaims(c *gin.Context, claims *iauth.Claims) {
	c.Set(CtxClaimsKey, claims)
	c.Set(CtxUserIDKey, claims.UserID)
	if claims.Email != "" {
		c.Set(CtxEmailKey, claims.Email)
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[7:])
	return token, token != ""
}
