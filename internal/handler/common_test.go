package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"go-gin-event-admission/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type testServer struct {
	router     *gin.Engine
	events     *mocks.EventServiceMock
	admission  *mocks.AdmissionServiceMock
	moderation *mocks.ModerationServiceMock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &testServer{
		router:     gin.New(),
		events:     mocks.NewEventServiceMock(),
		admission:  mocks.NewAdmissionServiceMock(),
		moderation: mocks.NewModerationServiceMock(),
	}
	s.router.ContextWithFallback = true
	api := s.router.Group("/api/v1", Authenticate(testSecret))
	NewEventHandler(s.events).RegisterRoutes(api)
	NewRegistrationHandler(s.admission).RegisterRoutes(api)
	NewMediaHandler(s.moderation, 1<<20).RegisterRoutes(api)

	t.Cleanup(func() {
		s.events.AssertExpectations(t)
		s.admission.AssertExpectations(t)
		s.moderation.AssertExpectations(t)
	})
	return s
}

func bearer(t *testing.T, principal string) string {
	t.Helper()
	token, err := IssueToken(testSecret, principal, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, method, path, principal string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if principal != "" {
		req.Header.Set("Authorization", bearer(t, principal))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path, principal string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return s.do(t, method, path, principal, body, "application/json")
}

type part struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}
