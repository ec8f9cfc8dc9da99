package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveExternalCall(t *testing.T) {
	before := testutil.ToFloat64(ExternalCalls.WithLabelValues("label", "error"))
	ObserveExternalCall("label", "error", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ExternalCalls.WithLabelValues("label", "error")))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/events/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/42", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(httpRequests, "event_admission_http_request_duration_seconds"))
}
