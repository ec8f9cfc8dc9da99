package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "moderation:outcomes"
	ConsumerGroupName  = "outcome-recorders"
	ConsumerNamePrefix = "recorder"
)

// RedisStreamConfig 可注入的逾時與重試設定；零值欄位使用預設。
type RedisStreamConfig struct {
	ClaimMinIdleTime   time.Duration // PEL 中超過此時間才被 XAUTOCLAIM 領取
	MaxRetryCount      int           // 超過此次數視為毒藥消息並丟棄
	ReadGroupBlockTime time.Duration // XReadGroup 阻塞時間
	MaxLen             int64         // stream 約略長度上限
}

func defaultRedisStreamConfig() RedisStreamConfig {
	return RedisStreamConfig{
		ClaimMinIdleTime:   5 * time.Second,
		MaxRetryCount:      5,
		ReadGroupBlockTime: 2 * time.Second,
		MaxLen:             100000,
	}
}

type RedisStreamOutcomeQueue struct {
	client       *redis.Client
	streamKey    string
	groupName    string
	consumerName string
	cfg          RedisStreamConfig
	log          *zap.Logger
}

// NewRedisStreamOutcomeQueue creates the consumer group when missing. config may be nil.
func NewRedisStreamOutcomeQueue(ctx context.Context, client *redis.Client, consumerID string, config *RedisStreamConfig) (*RedisStreamOutcomeQueue, error) {
	if consumerID == "" {
		consumerID = uuid.New().String()
	}
	cfg := defaultRedisStreamConfig()
	if config != nil {
		if config.ClaimMinIdleTime > 0 {
			cfg.ClaimMinIdleTime = config.ClaimMinIdleTime
		}
		if config.MaxRetryCount > 0 {
			cfg.MaxRetryCount = config.MaxRetryCount
		}
		if config.ReadGroupBlockTime > 0 {
			cfg.ReadGroupBlockTime = config.ReadGroupBlockTime
		}
		if config.MaxLen > 0 {
			cfg.MaxLen = config.MaxLen
		}
	}
	q := &RedisStreamOutcomeQueue{
		client:       client,
		streamKey:    StreamKey,
		groupName:    ConsumerGroupName,
		consumerName: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:          cfg,
		log:          logger.WithComponent("mq"),
	}
	if err := q.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamOutcomeQueue) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.streamKey, q.groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *RedisStreamOutcomeQueue) PublishOutcome(ctx context.Context, outcome *model.ModerationOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey,
		MaxLen: q.cfg.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"outcome": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (q *RedisStreamOutcomeQueue) SubscribeOutcomes(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		done := make(chan struct{})
		go func() {
			defer close(done)
			q.runAutoClaim(ctx, out)
		}()
		q.runReadLoop(ctx, out)
		<-done
	}()
	return out, nil
}

// runReadLoop 只讀 ">"（新訊息）；已投遞未 ack 的訊息由 XAUTOCLAIM 超時後領回重試
func (q *RedisStreamOutcomeQueue) runReadLoop(ctx context.Context, out chan<- Delivery) {
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.groupName,
			Consumer: q.consumerName,
			Streams:  []string{q.streamKey, ">"},
			Count:    10,
			Block:    q.cfg.ReadGroupBlockTime,
		}).Result()

		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Error("XReadGroup failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			if stream.Stream != q.streamKey {
				continue
			}
			if !q.deliverAll(ctx, out, stream.Messages, false) {
				return
			}
		}
	}
}

func (q *RedisStreamOutcomeQueue) deliverAll(ctx context.Context, out chan<- Delivery, msgs []redis.XMessage, pending bool) bool {
	for _, msg := range msgs {
		if pending && !q.shouldProcessMessage(ctx, msg.ID) {
			continue
		}
		d := q.newDelivery(ctx, msg)
		if d == nil {
			continue
		}
		select {
		case out <- *d:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// shouldProcessMessage 毒藥消息判斷：重試次數過多就 ack 丟棄
func (q *RedisStreamOutcomeQueue) shouldProcessMessage(ctx context.Context, messageID string) bool {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.streamKey,
		Group:  q.groupName,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil && err != redis.Nil {
		q.log.Warn("XPendingExt failed", zap.String("message_id", messageID), zap.Error(err))
		return true
	}
	if len(pending) == 0 || int(pending[0].RetryCount) < q.cfg.MaxRetryCount {
		return true
	}

	q.log.Warn("discard poison message",
		zap.String("message_id", messageID),
		zap.Int64("retries", pending[0].RetryCount),
		zap.Int("max_retries", q.cfg.MaxRetryCount),
	)
	_ = q.client.XAck(ctx, q.streamKey, q.groupName, messageID).Err()
	return false
}

// runAutoClaim 定時用 XAUTOCLAIM 領取超時未 ack 的消息
func (q *RedisStreamOutcomeQueue) runAutoClaim(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	startID := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			claimed, nextID, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   q.streamKey,
				Group:    q.groupName,
				Consumer: q.consumerName,
				MinIdle:  q.cfg.ClaimMinIdleTime,
				Count:    10,
				Start:    startID,
			}).Result()
			if err != nil && err != redis.Nil {
				if ctx.Err() == nil {
					q.log.Error("XAutoClaim failed", zap.Error(err))
				}
				continue
			}

			startID = "0-0"
			if nextID != "" {
				startID = nextID
			}
			if !q.deliverAll(ctx, out, claimed, true) {
				return
			}
		}
	}
}

func (q *RedisStreamOutcomeQueue) newDelivery(ctx context.Context, msg redis.XMessage) *Delivery {
	payload, ok := msg.Values["outcome"].(string)
	if !ok {
		q.log.Warn("invalid message: missing outcome field", zap.String("message_id", msg.ID))
		_ = q.client.XAck(ctx, q.streamKey, q.groupName, msg.ID).Err()
		return nil
	}
	var outcome model.ModerationOutcome
	if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
		q.log.Warn("unmarshal outcome failed", zap.String("message_id", msg.ID), zap.Error(err))
		_ = q.client.XAck(ctx, q.streamKey, q.groupName, msg.ID).Err()
		return nil
	}

	msgID := msg.ID
	return &Delivery{
		Data: &outcome,
		Ack: func() {
			if err := q.client.XAck(context.Background(), q.streamKey, q.groupName, msgID).Err(); err != nil {
				q.log.Error("XAck failed", zap.String("message_id", msgID), zap.Error(err))
			}
		},
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，等 ClaimMinIdleTime 後由 XAUTOCLAIM 領回，形成延遲重試
				q.log.Info("message nack(requeue), will retry", zap.String("message_id", msgID))
				return
			}
			if err := q.client.XAck(context.Background(), q.streamKey, q.groupName, msgID).Err(); err != nil {
				q.log.Error("XAck discard failed", zap.String("message_id", msgID), zap.Error(err))
			}
		},
	}
}
