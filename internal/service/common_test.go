package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-gin-event-admission/config"
	"go-gin-event-admission/internal/cache"
	"go-gin-event-admission/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *cache.RedisEventStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisEventStore(client)
}

func createTestEvent(t *testing.T, store *cache.RedisEventStore, category string, maxAttendees int, registrants ...string) *model.Event {
	t.Helper()
	ctx := context.Background()
	start := time.Now().UTC().Add(72 * time.Hour)
	event, err := store.Create(ctx, &model.Event{
		Creator:      "organizer",
		Title:        "Go Taipei #42",
		Description:  "Lightning talks and networking",
		Category:     category,
		EventType:    "in-person",
		StartDate:    start,
		EndDate:      start.Add(2 * time.Hour),
		TicketPrice:  100,
		MaxAttendees: maxAttendees,
		Status:       model.EventStatusPublished,
	})
	require.NoError(t, err)
	for _, p := range registrants {
		_, err := store.Register(ctx, event.ID, p)
		require.NoError(t, err)
	}
	return event
}

func testModerationConfig() config.ModerationConfig {
	cfg := config.LoadTestConfig().Moderation
	cfg.CallTimeout = 20 * time.Millisecond
	return cfg
}

// fakeDetector returns fixed labels. With hang set it blocks until the
// per-attempt timeout fires.
type fakeDetector struct {
	labels []model.Label
	err    error
	hang   bool
	calls  int32
}

func (d *fakeDetector) DetectLabels(ctx context.Context, image []byte) ([]model.Label, error) {
	atomic.AddInt32(&d.calls, 1)
	if d.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return d.labels, d.err
}

func (d *fakeDetector) Calls() int {
	return int(atomic.LoadInt32(&d.calls))
}

// scriptedClassifier replays answers in order and repeats the last one.
type scriptedClassifier struct {
	mu      sync.Mutex
	answers []string
	err     error
	prompts []string
	onCall  func()
}

func (c *scriptedClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.onCall != nil {
		c.onCall()
	}
	if c.err != nil {
		return "", c.err
	}
	i := len(c.prompts) - 1
	if i >= len(c.answers) {
		i = len(c.answers) - 1
	}
	return c.answers[i], nil
}

func (c *scriptedClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

type memoryMedia struct {
	mu      sync.Mutex
	seq     int
	objects map[string][]byte
	putErr  error
}

func newMemoryMedia() *memoryMedia {
	return &memoryMedia{objects: map[string][]byte{}}
}

func (m *memoryMedia) Put(ctx context.Context, folder string, file model.MediaFile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.seq++
	ref := fmt.Sprintf("%s/%d", folder, m.seq)
	m.objects[ref] = file.Data
	return ref, nil
}

func (m *memoryMedia) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

func (m *memoryMedia) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
