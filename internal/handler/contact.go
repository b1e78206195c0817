package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventpulse/backend/internal/model"
	"github.com/eventpulse/backend/internal/service"
)

type ContactHandler struct {
	svc *service.ContactService
}

func NewContactHandler(svc *service.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// Submit godoc
// @Summary Submit a contact message
// @Tags contact
// @Accept json
// @Produce json
// @Param request body model.ContactRequest true "Message"
// @Success 201 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /api/contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req model.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: "INVALID_REQUEST"})
		return
	}

	if _, err := h.svc.Submit(c.Request.Context(), req); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input", Code: "INVALID_REQUEST"})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusCreated, model.MessageResponse{Message: "Message received"})
}

// List godoc
// @Summary List contact messages
// @Tags contact
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ContactMessage
// @Failure 403 {object} model.ErrorResponse
// @Router /api/contact [get]
func (h *ContactHandler) List(c *gin.Context) {
	messages, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Server error"})
		return
	}
	c.JSON(http.StatusOK, messages)
}
