package handler

import (
	"net/http"

	"go-gin-event-admission/internal/service"

	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	service service.AdmissionService
}

func NewRegistrationHandler(service service.AdmissionService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("events/:id/register", h.Register)
	router.POST("events/:id/unregister", h.Unregister)
}

func (h *RegistrationHandler) Register(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	attendance, err := h.service.Register(c, id, Principal(c))
	if err != nil {
		handleError(c, err, "Register")
		return
	}
	c.JSON(http.StatusOK, attendance)
}

func (h *RegistrationHandler) Unregister(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	attendance, err := h.service.Unregister(c, id, Principal(c))
	if err != nil {
		handleError(c, err, "Unregister")
		return
	}
	c.JSON(http.StatusOK, attendance)
}
