package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/internal/service"
	apperrors "go-gin-event-admission/pkg/app_errors"
	"go-gin-event-admission/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxVideosPerUpload = 5

type MediaHandler struct {
	service     service.ModerationService
	maxFileSize int64
}

func NewMediaHandler(service service.ModerationService, maxFileSize int64) *MediaHandler {
	return &MediaHandler{service: service, maxFileSize: maxFileSize}
}

func (h *MediaHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("events/:id/photos", h.UploadPhoto)
	router.POST("events/:id/videos", h.UploadVideos)
}

// readFile reads at most maxFileSize+1 bytes so the service can reject
// oversized uploads without buffering them whole.
func (h *MediaHandler) readFile(fh *multipart.FileHeader) (model.MediaFile, error) {
	f, err := fh.Open()
	if err != nil {
		return model.MediaFile{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxFileSize > 0 {
		r = io.LimitReader(f, h.maxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return model.MediaFile{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return model.MediaFile{
		Data:        data,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
	}, nil
}

func (h *MediaHandler) UploadPhoto(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}
	file, err := h.readFile(fh)
	if err != nil {
		handleError(c, err, "UploadPhoto")
		return
	}

	result, err := h.service.SubmitPhoto(c, model.PhotoSubmission{
		EventID:     id,
		Principal:   Principal(c),
		Image:       file.Data,
		ContentType: file.ContentType,
		Filename:    file.Filename,
	})
	if err != nil {
		h.handleUploadError(c, err, "UploadPhoto")
		return
	}

	if !result.Accepted {
		logger.WithComponent("handler").Info("photo rejected",
			zap.String("event_id", id.String()),
			zap.String("reason", string(result.Reason)),
		)
	}
	c.JSON(http.StatusOK, result)
}

func (h *MediaHandler) UploadVideos(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["videos"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No videos uploaded"})
		return
	}
	headers := form.File["videos"]
	if len(headers) > maxVideosPerUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d videos per upload", maxVideosPerUpload)})
		return
	}

	files := make([]model.MediaFile, 0, len(headers))
	for _, fh := range headers {
		file, err := h.readFile(fh)
		if err != nil {
			handleError(c, err, "UploadVideos")
			return
		}
		files = append(files, file)
	}

	result, err := h.service.SubmitVideos(c, id, Principal(c), files)
	if err != nil {
		h.handleUploadError(c, err, "UploadVideos")
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleUploadError differs from handleError only in that uploading to an
// event one is not registered for is forbidden, not a bad request.
func (h *MediaHandler) handleUploadError(c *gin.Context, err error, operation string) {
	if errors.Is(err, apperrors.ErrNotRegistered) {
		logger.WithComponent("handler").Warn("Upload by non-attendee",
			zap.String("operation", operation), zap.Error(err))
		c.JSON(http.StatusForbidden, gin.H{"error": "Only registered attendees can upload"})
		return
	}
	handleError(c, err, operation)
}
