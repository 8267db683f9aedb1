package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/response"
)

// EventHandler exposes the festival event catalogue.
type EventHandler struct {
	events *services.EventService
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// GET /api/events
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.events.List(requestContext(c), true)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// GET /api/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !event.IsActive {
		writeError(c, services.ErrEventNotFound)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// GET /api/admin/events
func (h *EventHandler) AdminList(c *gin.Context) {
	events, err := h.events.List(requestContext(c), parseBoolQuery(c, "active", false))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// POST /api/admin/events
func (h *EventHandler) Create(c *gin.Context) {
	var req services.CreateEventInput
	if !bindAndValidate(c, &req) {
		return
	}
	event, err := h.events.Create(requestContext(c), req, actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, event)
}

// PATCH /api/admin/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	var req services.UpdateEventInput
	if !bindAndValidate(c, &req) {
		return
	}
	event, err := h.events.Update(requestContext(c), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

type registrationToggleRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// POST /api/admin/events/:id/registration
func (h *EventHandler) SetRegistrationOpen(c *gin.Context) {
	var req registrationToggleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	event, err := h.events.SetRegistrationOpen(requestContext(c), c.Param("id"), *req.Open, actorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}
