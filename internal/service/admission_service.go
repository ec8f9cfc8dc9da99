package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-event-admission/config"
	"go-gin-event-admission/internal/metrics"
	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/internal/repository"
	apperrors "go-gin-event-admission/pkg/app_errors"
	"go-gin-event-admission/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdmissionService interface {
	// 報名：名額與重複報名檢查由 store 的單一原子操作完成
	Register(ctx context.Context, eventID uuid.UUID, principal string) (*model.Attendance, error)
	// 取消報名
	Unregister(ctx context.Context, eventID uuid.UUID, principal string) (*model.Attendance, error)
}

type AdmissionServiceImpl struct {
	store   repository.EventStore
	retries int
	wait    time.Duration
}

func NewAdmissionService(store repository.EventStore, cfg config.StoreConfig) *AdmissionServiceImpl {
	return &AdmissionServiceImpl{
		store:   store,
		retries: cfg.AdmissionRetries,
		wait:    cfg.AdmissionRetryWait,
	}
}

func (s *AdmissionServiceImpl) Register(ctx context.Context, eventID uuid.UUID, principal string) (*model.Attendance, error) {
	return s.apply(ctx, "register", principal, func() (*model.Attendance, error) {
		return s.store.Register(ctx, eventID, principal)
	})
}

func (s *AdmissionServiceImpl) Unregister(ctx context.Context, eventID uuid.UUID, principal string) (*model.Attendance, error) {
	return s.apply(ctx, "unregister", principal, func() (*model.Attendance, error) {
		return s.store.Unregister(ctx, eventID, principal)
	})
}

// apply retries ErrStoreConflict with a linear backoff (wait × retry number)
// and turns an exhausted budget into ErrStoreContention. The store is called
// at most 1+retries times. Every other result is returned as is.
func (s *AdmissionServiceImpl) apply(ctx context.Context, operation, principal string, op func() (*model.Attendance, error)) (*model.Attendance, error) {
	if strings.TrimSpace(principal) == "" {
		return nil, apperrors.ErrUnauthorized
	}

	for attempt := 0; ; attempt++ {
		attendance, err := op()
		if !errors.Is(err, apperrors.ErrStoreConflict) {
			metrics.AdmissionResults.WithLabelValues(operation, admissionResult(err)).Inc()
			return attendance, err
		}

		if attempt >= s.retries {
			metrics.AdmissionResults.WithLabelValues(operation, "contention").Inc()
			logger.WithComponent("service").Warn("admission contention",
				zap.String("operation", operation),
				zap.Int("attempts", attempt+1),
			)
			return nil, fmt.Errorf("%w: %s", apperrors.ErrStoreContention, operation)
		}
		metrics.AdmissionConflictRetries.Inc()

		timer := time.NewTimer(s.wait * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func admissionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrEventFull):
		return "full"
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, apperrors.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, apperrors.ErrEventNotFound):
		return "not_found"
	default:
		return "error"
	}
}
