package worker

import (
	"context"
	"time"

	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/internal/queue"
	"go-gin-event-admission/pkg/logger"

	"go.uber.org/zap"
)

// OutcomeRecorder persists one moderation outcome.
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome *model.ModerationOutcome) error
}

// OutcomeWorker moves outcomes from the queue into the outcome log.
type OutcomeWorker struct {
	recorder OutcomeRecorder
	queue    queue.OutcomeQueue
	// 寫入失敗後的等待時間，連續失敗時加倍
	retryBase time.Duration
	retryMax  time.Duration
}

func NewOutcomeWorker(recorder OutcomeRecorder, queue queue.OutcomeQueue) *OutcomeWorker {
	return &OutcomeWorker{
		recorder:  recorder,
		queue:     queue,
		retryBase: 100 * time.Millisecond,
		retryMax:  5 * time.Second,
	}
}

// Run blocks until ctx is cancelled or the subscription closes.
func (w *OutcomeWorker) Run(ctx context.Context) error {
	msgs, err := w.queue.SubscribeOutcomes(ctx)
	if err != nil {
		return err
	}

	log := logger.WithComponent("worker")
	backoff := w.retryBase
	for msg := range msgs {
		if err := w.recorder.Record(ctx, msg.Data); err != nil {
			// 資料庫暫時連不上，留給 queue 重試
			log.Warn("record outcome failed",
				zap.String("request_id", msg.Data.RequestID),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			msg.Nack(true)

			if !sleep(ctx, backoff) {
				return nil
			}
			backoff *= 2
			if backoff > w.retryMax {
				backoff = w.retryMax
			}
			continue
		}
		msg.Ack()
		backoff = w.retryBase
	}
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
