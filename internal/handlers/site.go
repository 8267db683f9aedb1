package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// SiteHandler serves the public site settings, countdown, contact and stats widgets.
type SiteHandler struct {
	settings *services.SettingsService
	stats    *services.StatsService
	now      func() time.Time
}

func NewSiteHandler(settings *services.SettingsService, stats *services.StatsService) *SiteHandler {
	return &SiteHandler{settings: settings, stats: stats, now: time.Now}
}

// GET /api/site
func (h *SiteHandler) Site(c *gin.Context) {
	site, err := h.settings.Public(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, site)
}

// GET /api/countdown
func (h *SiteHandler) Countdown(c *gin.Context) {
	countdown, err := h.settings.Countdown(requestContext(c), h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, countdown)
}

// GET /api/contact/whatsapp
func (h *SiteHandler) WhatsApp(c *gin.Context) {
	contact, err := h.settings.WhatsAppLink(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, contact)
}

// GET /api/stats
func (h *SiteHandler) Stats(c *gin.Context) {
	snapshot, err := h.stats.Snapshot(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, snapshot)
}

// PUT /api/admin/settings
func (h *SiteHandler) Update(c *gin.Context) {
	var req services.UpdateSettingsInput
	if !bindAndValidate(c, &req) {
		return
	}
	site, err := h.settings.Update(requestContext(c), req, actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, site)
}

type maintenanceRequest struct {
	Enabled *bool  `json:"enabled" validate:"required"`
	Message string `json:"message" validate:"max=500"`
}

// POST /api/admin/maintenance
func (h *SiteHandler) SetMaintenance(c *gin.Context) {
	var req maintenanceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	site, err := h.settings.SetMaintenance(requestContext(c), *req.Enabled, req.Message, actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, site)
}
