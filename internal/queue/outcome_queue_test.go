package queue

import (
	"context"
	"testing"
	"time"

	"go-gin-event-admission/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ OutcomeQueue = (*MemoryOutcomeQueue)(nil)
	_ OutcomeQueue = (*RedisStreamOutcomeQueue)(nil)
)

func newOutcome(requestID string, status model.OutcomeStatus) *model.ModerationOutcome {
	return &model.ModerationOutcome{
		RequestID: requestID,
		EventID:   uuid.New(),
		Principal: "alice",
		Status:    status,
		Labels:    []model.Label{{Name: "Crowd", Confidence: 88}},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func receive(t *testing.T, ch <-chan Delivery) Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "delivery channel closed")
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return Delivery{}
	}
}

// --- 記憶體版 ---

func TestMemoryOutcomeQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemoryOutcomeQueue(1)
	sent := newOutcome("req-1", model.OutcomeAccepted)
	require.NoError(t, q.PublishOutcome(ctx, sent))

	t.Run("Failed - Full", func(t *testing.T) {
		assert.ErrorIs(t, q.PublishOutcome(ctx, newOutcome("req-2", model.OutcomeAccepted)), ErrQueueFull)
	})

	ch, err := q.SubscribeOutcomes(ctx)
	require.NoError(t, err)

	d := receive(t, ch)
	assert.Equal(t, sent, d.Data)

	// nack(requeue) 會再投遞一次
	d.Nack(true)
	again := receive(t, ch)
	assert.Equal(t, "req-1", again.Data.RequestID)
	again.Ack()

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

// --- Redis Stream 版 ---

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewRedisStreamOutcomeQueue(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	_, err := NewRedisStreamOutcomeQueue(ctx, client, "c1", nil)
	require.NoError(t, err)

	// 第二次建立時 group 已存在
	q, err := NewRedisStreamOutcomeQueue(ctx, client, "", nil)
	require.NoError(t, err)
	assert.Contains(t, q.consumerName, ConsumerNamePrefix+":")
}

func TestRedisStreamOutcomeQueue_PublishAndSubscribe(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := NewRedisStreamOutcomeQueue(ctx, client, "deliver-test", &RedisStreamConfig{
		ReadGroupBlockTime: 50 * time.Millisecond,
		ClaimMinIdleTime:   time.Hour,
	})
	require.NoError(t, err)

	sent := newOutcome("req-deliver", model.OutcomeNotRelevant)
	require.NoError(t, q.PublishOutcome(ctx, sent))

	ch, err := q.SubscribeOutcomes(ctx)
	require.NoError(t, err)

	d := receive(t, ch)
	assert.Equal(t, sent.RequestID, d.Data.RequestID)
	assert.Equal(t, sent.EventID, d.Data.EventID)
	assert.Equal(t, sent.Status, d.Data.Status)
	assert.Equal(t, sent.Labels, d.Data.Labels)
	d.Ack()

	require.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, StreamKey, ConsumerGroupName).Result()
		return err == nil && pending.Count == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRedisStreamOutcomeQueue_SkipsMalformedMessage(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := NewRedisStreamOutcomeQueue(ctx, client, "malformed", &RedisStreamConfig{
		ReadGroupBlockTime: 50 * time.Millisecond,
		ClaimMinIdleTime:   time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		Values: map[string]interface{}{"outcome": "{not json"},
	}).Err())
	require.NoError(t, q.PublishOutcome(ctx, newOutcome("req-good", model.OutcomeAccepted)))

	ch, err := q.SubscribeOutcomes(ctx)
	require.NoError(t, err)

	d := receive(t, ch)
	assert.Equal(t, "req-good", d.Data.RequestID)
	d.Ack()
}
