package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-gin-event-admission/config"
	"go-gin-event-admission/internal/cache"
	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/internal/moderation"
	"go-gin-event-admission/internal/queue"
	"go-gin-event-admission/internal/repository/mocks"
	"go-gin-event-admission/internal/service"
	"go-gin-event-admission/internal/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDetector []model.Label

func (d staticDetector) DetectLabels(ctx context.Context, image []byte) ([]model.Label, error) {
	return d, nil
}

// blockingDetector never answers; it returns only when its ctx ends.
type blockingDetector struct {
	calls int32
}

func (d *blockingDetector) DetectLabels(ctx context.Context, image []byte) ([]model.Label, error) {
	atomic.AddInt32(&d.calls, 1)
	<-ctx.Done()
	return nil, ctx.Err()
}

type staticClassifier string

func (c staticClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	return string(c), nil
}

// recorder collects outcomes written by the worker.
type recorder struct {
	mu       sync.Mutex
	outcomes []*model.ModerationOutcome
}

func (r *recorder) Record(ctx context.Context, o *model.ModerationOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recorder) snapshot() []*model.ModerationOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.ModerationOutcome(nil), r.outcomes...)
}

// setupIntegrationTest wires real services over a miniredis store. Only the
// external moderation services are faked.
func setupIntegrationTest(t *testing.T, answer string) (*testServer, *recorder) {
	t.Helper()
	detector := staticDetector{{Name: "Laptop", Confidence: 88}, {Name: "Conference Room", Confidence: 76}}
	return newIntegrationServer(t, detector, staticClassifier(answer), config.LoadTestConfig().Moderation)
}

func newIntegrationServer(t *testing.T, detector moderation.LabelDetector, classifier moderation.RelevanceClassifier, modCfg config.ModerationConfig) (*testServer, *recorder) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := cache.NewRedisEventStore(client)
	files := &memoryFiles{objects: map[string][]byte{}}
	outcomes := queue.NewMemoryOutcomeQueue(100)
	cfg := config.LoadTestConfig()

	eventService := service.NewEventService(store, mocks.NewOutcomeRepositoryMock(), files)
	admissionService := service.NewAdmissionService(store, cfg.Store)
	moderationService := service.NewModerationService(store, files, detector, classifier,
		outcomes, modCfg, config.UploadConfig{MaxFileSize: 1 << 20})

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.NewOutcomeWorker(rec, outcomes).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	gin.SetMode(gin.TestMode)
	s := &testServer{router: gin.New()}
	s.router.ContextWithFallback = true
	api := s.router.Group("/api/v1", Authenticate(testSecret))
	NewEventHandler(eventService).RegisterRoutes(api)
	NewRegistrationHandler(admissionService).RegisterRoutes(api)
	NewMediaHandler(moderationService, 1<<20).RegisterRoutes(api)
	return s, rec
}

type memoryFiles struct {
	mu      sync.Mutex
	seq     int
	objects map[string][]byte
}

func (m *memoryFiles) Put(ctx context.Context, folder string, file model.MediaFile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ref := fmt.Sprintf("%s/%d", folder, m.seq)
	m.objects[ref] = file.Data
	return ref, nil
}

func (m *memoryFiles) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

func createEvent(t *testing.T, s *testServer, maxAttendees int) *model.Event {
	t.Helper()
	start := time.Now().UTC().Add(48 * time.Hour)
	w := s.doJSON(t, http.MethodPost, "/api/v1/events", "organizer", map[string]interface{}{
		"title":         "Go Taipei #42",
		"description":   "Lightning talks",
		"category":      "Tech Meetup",
		"event_type":    "in-person",
		"start_date":    start,
		"end_date":      start.Add(2 * time.Hour),
		"max_attendees": maxAttendees,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var event model.Event
	decode(t, w, &event)
	return &event
}

func getEvent(t *testing.T, s *testServer, event *model.Event) *model.Event {
	t.Helper()
	w := s.doJSON(t, http.MethodGet, "/api/v1/events/"+event.ID.String(), "organizer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Event
	decode(t, w, &got)
	return &got
}

// TestIntegration_EndToEnd 完整流程：建立活動 → 報名 → 上傳照片 → worker 記錄審核結果
func TestIntegration_EndToEnd(t *testing.T) {
	s, rec := setupIntegrationTest(t, "True")
	event := createEvent(t, s, 2)
	base := "/api/v1/events/" + event.ID.String()

	w := s.doJSON(t, http.MethodPost, base+"/register", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body, ct := multipartBody(t, part{"image", "p.jpg", "image/jpeg", jpeg})
	w = s.do(t, http.MethodPost, base+"/photos", "alice", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.ModerationResult
	decode(t, w, &result)
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, result.UploadCount)

	got := getEvent(t, s, event)
	assert.Equal(t, []string{"alice"}, got.Registrations)
	assert.Equal(t, []string{result.PhotoRef}, got.Photos)
	assert.NoError(t, got.CheckInvariants())

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	outcome := rec.snapshot()[0]
	assert.Equal(t, model.OutcomeAccepted, outcome.Status)
	assert.Equal(t, event.ID, outcome.EventID)

	// 非報名者不能上傳
	body, ct = multipartBody(t, part{"image", "p.jpg", "image/jpeg", jpeg})
	w = s.do(t, http.MethodPost, base+"/photos", "mallory", body, ct)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestIntegration_RejectedPhotoLeavesEventUnchanged(t *testing.T) {
	s, rec := setupIntegrationTest(t, "False")
	event := createEvent(t, s, 2)
	base := "/api/v1/events/" + event.ID.String()
	require.Equal(t, http.StatusOK, s.doJSON(t, http.MethodPost, base+"/register", "alice", nil).Code)

	body, ct := multipartBody(t, part{"image", "p.jpg", "image/jpeg", jpeg})
	w := s.do(t, http.MethodPost, base+"/photos", "alice", body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var result model.ModerationResult
	decode(t, w, &result)
	assert.False(t, result.Accepted)
	assert.Equal(t, model.ReasonNotRelevant, result.Reason)

	got := getEvent(t, s, event)
	assert.Empty(t, got.Photos)
	assert.Zero(t, got.UploadCount)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, model.OutcomeNotRelevant, rec.snapshot()[0].Status)
}

// TestIntegration_ConcurrentRegistration 多人同時搶最後名額
func TestIntegration_ConcurrentRegistration(t *testing.T) {
	s, _ := setupIntegrationTest(t, "True")
	const capacity, users = 5, 40
	event := createEvent(t, s, capacity)
	path := "/api/v1/events/" + event.ID.String() + "/register"

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(principal string) {
			defer wg.Done()
			w := s.doJSON(t, http.MethodPost, path, principal, nil)
			mu.Lock()
			codes[w.Code]++
			mu.Unlock()
		}(fmt.Sprintf("user-%02d", i))
	}
	wg.Wait()

	assert.Equal(t, capacity, codes[http.StatusOK])
	assert.Equal(t, users-capacity, codes[http.StatusBadRequest])

	got := getEvent(t, s, event)
	assert.Equal(t, capacity, got.CurrentAttendees)
	assert.Len(t, got.Registrations, capacity)
	assert.NoError(t, got.CheckInvariants())
}

// 客戶端斷線時要立刻中止外部呼叫，也不能記成服務中斷
func TestIntegration_ClientDisconnectCancelsModeration(t *testing.T) {
	modCfg := config.LoadTestConfig().Moderation
	modCfg.CallTimeout = 3 * time.Second
	modCfg.LabelAttempts = 1
	detector := &blockingDetector{}

	s, rec := newIntegrationServer(t, detector, staticClassifier("True"), modCfg)
	event := createEvent(t, s, 2)
	base := "/api/v1/events/" + event.ID.String()
	require.Equal(t, http.StatusOK, s.doJSON(t, http.MethodPost, base+"/register", "alice", nil).Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	body, ct := multipartBody(t, part{"image", "p.jpg", "image/jpeg", jpeg})
	req := httptest.NewRequest(http.MethodPost, base+"/photos", body).WithContext(ctx)
	req.Header.Set("Authorization", bearer(t, "alice"))
	req.Header.Set("Content-Type", ct)

	time.AfterFunc(100*time.Millisecond, cancel)
	start := time.Now()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "label call must stop with the request")
	assert.Equal(t, statusClientClosedRequest, w.Code)
	assert.Empty(t, w.Body.String())
	assert.EqualValues(t, 1, atomic.LoadInt32(&detector.calls))

	got := getEvent(t, s, event)
	assert.Empty(t, got.Photos)
	assert.Zero(t, got.UploadCount)
	assert.Never(t, func() bool { return len(rec.snapshot()) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}
