package handler

import (
	"net/http"

	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

// RegisterRoutes mounts the event routes on an authenticated group.
func (h *EventHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("events", h.List)
	router.POST("events", h.Create)
	router.GET("events/registered", h.ListRegistered)
	router.GET("events/stats", h.CreatorStats)
	router.GET("events/:id", h.GetByID)
	router.DELETE("events/:id", h.Delete)
	router.GET("events/:id/moderation", h.ModerationStats)
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c)
	if err != nil {
		handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetByID(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, err := h.service.GetByID(c, id)
	if err != nil {
		handleError(c, err, "GetByID")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Create(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Create(c, Principal(c), req)
	if err != nil {
		handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c, id, Principal(c)); err != nil {
		handleError(c, err, "Delete")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EventHandler) ListRegistered(c *gin.Context) {
	events, err := h.service.ListRegistered(c, Principal(c))
	if err != nil {
		handleError(c, err, "ListRegistered")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) CreatorStats(c *gin.Context) {
	stats, err := h.service.CreatorStats(c, Principal(c))
	if err != nil {
		handleError(c, err, "CreatorStats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *EventHandler) ModerationStats(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	stats, err := h.service.ModerationStats(c, id, Principal(c))
	if err != nil {
		handleError(c, err, "ModerationStats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
