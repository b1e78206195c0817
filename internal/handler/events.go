package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventpulse/backend/internal/model"
	"github.com/eventpulse/backend/internal/service"
)

type EventHandler struct {
	svc *service.EventService
}

func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// List godoc
// @Summary List published events
// @Tags events
// @Produce json
// @Param category query string false "Category filter"
// @Param search query string false "Title search"
// @Success 200 {array} model.Event
// @Failure 500 {object} model.ErrorResponse
// @Router /api/events [get]
func (h *EventHandler) List(c *gin.Context) {
	filter := model.EventFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}

	events, err := h.svc.ListPublished(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// ListMine godoc
// @Summary List the authenticated user's events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Event
// @Failure 401 {object} model.ErrorResponse
// @Router /api/events/mine [get]
func (h *EventHandler) ListMine(c *gin.Context) {
	events, err := h.svc.ListMine(c.Request.Context(), GetAuthUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// Get godoc
// @Summary Get a single event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} model.Event
// @Failure 404 {object} model.ErrorResponse
// @Router /api/events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.svc.Get(c.Request.Context(), GetAuthUser(c), c.Param("id"))
	if err != nil {
		h.writeEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// Create godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateEventRequest true "Event payload"
// @Success 201 {object} model.Event
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req model.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: "INVALID_REQUEST"})
		return
	}

	event, err := h.svc.Create(c.Request.Context(), GetAuthUser(c), req)
	if err != nil {
		h.writeEventError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// Update godoc
// @Summary Update an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body model.UpdateEventRequest true "Event payload"
// @Success 200 {object} model.Event
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var req model.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: "INVALID_REQUEST"})
		return
	}

	event, err := h.svc.Update(c.Request.Context(), GetAuthUser(c), c.Param("id"), req)
	if err != nil {
		h.writeEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// Delete godoc
// @Summary Delete an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} model.StatusResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetAuthUser(c), c.Param("id")); err != nil {
		h.writeEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "deleted"})
}

func (h *EventHandler) writeEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input", Code: "INVALID_REQUEST"})
	case errors.Is(err, service.ErrEventNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Event not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, model.ErrorResponse{Error: "insufficient permissions", Code: "FORBIDDEN"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
	}
}
