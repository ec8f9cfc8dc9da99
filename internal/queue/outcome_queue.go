package queue

import (
	"context"
	"errors"

	"go-gin-event-admission/internal/model"
)

var ErrQueueFull = errors.New("outcome queue is full")

type Delivery struct {
	Data *model.ModerationOutcome
	Ack  func()
	Nack func(requeue bool)
}

// OutcomeQueue carries moderation outcomes from the request path to the
// outcome log. Delivery is at-least-once.
type OutcomeQueue interface {
	// 發送審核結果到隊列，不可阻塞請求
	PublishOutcome(ctx context.Context, outcome *model.ModerationOutcome) error
	// 訂閱審核結果隊列
	SubscribeOutcomes(ctx context.Context) (<-chan Delivery, error)
}

// MemoryOutcomeQueue 使用 Go channel 模擬 MQ 隊列，程序重啟即遺失
type MemoryOutcomeQueue struct {
	ch chan *model.ModerationOutcome
}

func NewMemoryOutcomeQueue(bufferSize int) *MemoryOutcomeQueue {
	return &MemoryOutcomeQueue{
		ch: make(chan *model.ModerationOutcome, bufferSize),
	}
}

func (q *MemoryOutcomeQueue) PublishOutcome(ctx context.Context, outcome *model.ModerationOutcome) error {
	select {
	case q.ch <- outcome:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryOutcomeQueue) SubscribeOutcomes(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case outcome, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: outcome,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							// 重回隊列；滿了就丟掉，結果紀錄本來就是 best-effort
							_ = q.PublishOutcome(context.Background(), outcome)
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
