package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// CheckInHandler admits pass holders at the venue gate.
type CheckInHandler struct {
	checkins *services.CheckInService
}

func NewCheckInHandler(checkins *services.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkins: checkins}
}

type checkInTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

type checkInCodeRequest struct {
	RegistrationID string `json:"registration_id" validate:"required,max=64"`
	Code           string `json:"code" validate:"required,max=16"`
}

// POST /api/admin/checkin
func (h *CheckInHandler) ByToken(c *gin.Context) {
	var req checkInTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := h.checkins.ByToken(requestContext(c), req.Token, actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/admin/checkin/code
func (h *CheckInHandler) ByCode(c *gin.Context) {
	var req checkInCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := h.checkins.ByCode(requestContext(c), req.RegistrationID, req.Code, actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
