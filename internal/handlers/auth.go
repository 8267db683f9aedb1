package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/auth"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/middleware"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// AuthHandler manages admin console sign-in.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTPCode  string `json:"otp_code" validate:"omitempty,max=16"`
}

type otpRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

type userPayload struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	Roles       []string   `json:"roles"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func newUserPayload(user *models.User) userPayload {
	return userPayload{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsActive:    user.IsActive,
		MFAEnabled:  user.MFAEnabled,
		Roles:       user.RoleIDs(),
		LastLoginAt: user.LastLoginAt,
	}
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password, req.OTPCode, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  user.RoleIDs(),
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.jwt.TTL().Seconds()),
		"user":         newUserPayload(user),
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !user.IsActive {
		writeError(c, services.ErrUserInactive)
		return
	}

	response.Success(c, http.StatusOK, newUserPayload(user))
}

// POST /api/auth/mfa/enroll
func (h *AuthHandler) EnrollMFA(c *gin.Context) {
	enrollment, err := h.users.EnrollMFA(requestContext(c), actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, enrollment)
}

// POST /api/auth/mfa/confirm
func (h *AuthHandler) ConfirmMFA(c *gin.Context) {
	var req otpRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.users.ConfirmMFA(requestContext(c), actorFromContext(c), req.Code); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"mfa_enabled": true})
}

// DELETE /api/auth/mfa
func (h *AuthHandler) DisableMFA(c *gin.Context) {
	var req otpRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.users.DisableMFA(requestContext(c), actorFromContext(c), req.Code); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"mfa_enabled": false})
}
