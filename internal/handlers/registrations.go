package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// RegistrationHandler accepts public sign-ups and serves the admin registration desk.
type RegistrationHandler struct {
	registrations *services.RegistrationService
}

func NewRegistrationHandler(registrations *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// POST /api/registrations
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := h.registrations.Register(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// POST /api/registrations/fest
func (h *RegistrationHandler) RegisterFest(c *gin.Context) {
	var req services.FestRegisterInput
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := h.registrations.RegisterFest(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// GET /api/admin/registrations
func (h *RegistrationHandler) List(c *gin.Context) {
	page, perPage := pageParams(c)
	regs, total, err := h.registrations.List(requestContext(c), services.ListRegistrationsOptions{
		Page:     page,
		PageSize: perPage,
		Filters:  registrationFilters(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, regs, response.NewMeta(page, perPage, total))
}

// GET /api/admin/fest-registrations
func (h *RegistrationHandler) ListFest(c *gin.Context) {
	page, perPage := pageParams(c)
	filters := registrationFilters(c)
	filters.EventID = ""
	regs, total, err := h.registrations.ListFest(requestContext(c), services.ListRegistrationsOptions{
		Page:     page,
		PageSize: perPage,
		Filters:  filters,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, regs, response.NewMeta(page, perPage, total))
}

// GET /api/admin/registrations/:id
func (h *RegistrationHandler) Get(c *gin.Context) {
	holder, err := h.registrations.Lookup(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, holder)
}

// POST /api/admin/registrations/:id/cancel
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	holder, err := h.registrations.Cancel(requestContext(c), c.Param("id"), actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, holder)
}

func registrationFilters(c *gin.Context) services.RegistrationFilters {
	return services.RegistrationFilters{
		EventID: strings.TrimSpace(c.Query("event_id")),
		Status:  strings.TrimSpace(c.Query("status")),
		Query:   strings.TrimSpace(c.Query("q")),
	}
}
