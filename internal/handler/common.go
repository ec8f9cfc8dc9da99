package handler

import (
	"context"
	"errors"
	"net/http"

	apperrors "go-gin-event-admission/pkg/app_errors"
	"go-gin-event-admission/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// retryAfterSeconds is sent with every 503.
const retryAfterSeconds = "5"

// statusClientClosedRequest is written when the client went away mid-request.
const statusClientClosedRequest = 499

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// eventID parses the :id path parameter and writes 400 on failure.
func eventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return uuid.Nil, false
	}
	return id, true
}

func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn("Request cancelled by client")
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrEventFull):
		log.Warn("Event full")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event is already full"})
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		log.Warn("Already registered")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already registered for this event"})
	case errors.Is(err, apperrors.ErrNotRegistered):
		log.Warn("Not registered")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not registered for this event"})
	case errors.Is(err, apperrors.ErrUnsupportedMediaType):
		log.Warn("Unsupported media type")
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Unsupported media type"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Warn("Unauthorized")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case apperrors.IsRetryable(err):
		log.Warn("Temporarily unavailable")
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": unavailableMessage(err)})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// unavailableMessage names the failing dependency without attempt details.
func unavailableMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrLabelServiceUnavailable):
		return apperrors.ErrLabelServiceUnavailable.Error()
	case errors.Is(err, apperrors.ErrRelevanceServiceUnavailable):
		return apperrors.ErrRelevanceServiceUnavailable.Error()
	default:
		return apperrors.ErrStoreContention.Error()
	}
}
