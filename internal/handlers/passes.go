package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// PassHandler renders and verifies QR passes.
type PassHandler struct {
	passes        *services.PassService
	registrations *services.RegistrationService
}

func NewPassHandler(passes *services.PassService, registrations *services.RegistrationService) *PassHandler {
	return &PassHandler{passes: passes, registrations: registrations}
}

type verifyPassRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

type passVerification struct {
	Valid     bool                      `json:"valid"`
	Strategy  string                    `json:"strategy"`
	Expired   bool                      `json:"expired"`
	Status    models.RegistrationStatus `json:"status"`
	Kind      string                    `json:"kind"`
	Payload   qrcodec.Payload           `json:"payload"`
	EventName string                    `json:"event_name,omitempty"`
}

// GET /api/passes/:token/qr.png
func (h *PassHandler) Image(c *gin.Context) {
	h.renderImage(c, c.Param("token"))
}

// GET /api/passes/qr.png?token=
// Legacy tokens are standard base64 and may contain '/', which cannot travel
// in a path segment.
func (h *PassHandler) ImageByQuery(c *gin.Context) {
	h.renderImage(c, c.Query("token"))
}

func (h *PassHandler) renderImage(c *gin.Context, token string) {
	png, err := h.passes.Image(strings.TrimSpace(token), parseIntQuery(c, "size", 0))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// POST /api/passes/verify
func (h *PassHandler) Verify(c *gin.Context) {
	var req verifyPassRequest
	if !bindAndValidate(c, &req) {
		return
	}

	verification, err := h.passes.Verify(req.Token)
	if err != nil {
		writeError(c, err)
		return
	}

	holder, err := h.registrations.Lookup(requestContext(c), verification.Payload.RegistrationID)
	if err != nil {
		if errors.Is(err, services.ErrRegistrationNotFound) {
			writeError(c, apperrors.ErrPassInvalid.WithMessage("Pass does not match any registration"))
			return
		}
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, passVerification{
		Valid:     true,
		Strategy:  verification.Strategy,
		Expired:   h.passes.Expired(verification.Payload),
		Status:    holder.Pass.Status,
		Kind:      holder.Kind,
		Payload:   verification.Payload,
		EventName: holder.EventName,
	})
}
