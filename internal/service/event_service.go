package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go-gin-event-admission/internal/media"
	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/internal/repository"
	apperrors "go-gin-event-admission/pkg/app_errors"
	"go-gin-event-admission/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService interface {
	Create(ctx context.Context, creator string, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// Delete 只有建立者可以刪除
	Delete(ctx context.Context, id uuid.UUID, principal string) error
	ListRegistered(ctx context.Context, principal string) ([]*model.Event, error)
	CreatorStats(ctx context.Context, creator string) (*model.CreatorStats, error)
	// ModerationStats 審核結果統計，只有建立者可以看
	ModerationStats(ctx context.Context, id uuid.UUID, principal string) (*model.OutcomeStats, error)
}

type EventServiceImpl struct {
	store    repository.EventStore
	outcomes repository.OutcomeRepository
	media    media.MediaStore
}

func NewEventService(store repository.EventStore, outcomes repository.OutcomeRepository, mediaStore media.MediaStore) *EventServiceImpl {
	return &EventServiceImpl{store: store, outcomes: outcomes, media: mediaStore}
}

func (s *EventServiceImpl) Create(ctx context.Context, creator string, req model.CreateEventRequest) (*model.Event, error) {
	if strings.TrimSpace(creator) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, fmt.Errorf("%w: end_date must be after start_date", apperrors.ErrInvalidInput)
	}

	status := model.EventStatusPublished
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, *req.Status)
		}
		status = *req.Status
	}

	return s.store.Create(ctx, &model.Event{
		ID:           uuid.New(),
		Creator:      creator,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		EventType:    req.EventType,
		Location:     req.Location,
		Venue:        req.Venue,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		TicketPrice:  req.TicketPrice,
		MaxAttendees: req.MaxAttendees,
		Status:       status,
	})
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.store.List(ctx)
}

func (s *EventServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.store.FindByID(ctx, id)
}

func (s *EventServiceImpl) ownedEvent(ctx context.Context, id uuid.UUID, principal string) (*model.Event, error) {
	event, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Creator != principal {
		return nil, apperrors.ErrForbidden
	}
	return event, nil
}

func (s *EventServiceImpl) Delete(ctx context.Context, id uuid.UUID, principal string) error {
	event, err := s.ownedEvent(ctx, id, principal)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	// 活動刪除後清掉媒體檔，失敗只記錄
	log := logger.WithComponent("service").With(zap.String("event_id", id.String()))
	for _, ref := range append(event.Photos, event.Videos...) {
		if err := s.media.Delete(ctx, ref); err != nil {
			log.Warn("remove event media failed", zap.String("ref", ref), zap.Error(err))
		}
	}
	return nil
}

func (s *EventServiceImpl) ListRegistered(ctx context.Context, principal string) ([]*model.Event, error) {
	return s.store.ListRegistered(ctx, principal)
}

func (s *EventServiceImpl) CreatorStats(ctx context.Context, creator string) (*model.CreatorStats, error) {
	events, err := s.store.ListByCreator(ctx, creator)
	if err != nil {
		return nil, err
	}

	stats := &model.CreatorStats{
		TotalEvents:    len(events),
		EventsByStatus: make(map[string]int),
	}
	categories := make(map[string]int)
	for _, e := range events {
		stats.EventsByStatus[string(e.Status)]++
		stats.TotalAttendees += e.CurrentAttendees
		stats.TotalUploads += e.UploadCount + e.VideoCount
		stats.TotalRevenue += e.TicketPrice * float64(e.CurrentAttendees)
		categories[e.Category]++
	}
	stats.MostFrequentCategory = mostFrequent(categories)

	return stats, nil
}

// mostFrequent picks the highest count; ties go to the alphabetically first key.
func mostFrequent(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := ""
	for _, k := range keys {
		if best == "" || counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func (s *EventServiceImpl) ModerationStats(ctx context.Context, id uuid.UUID, principal string) (*model.OutcomeStats, error) {
	if _, err := s.ownedEvent(ctx, id, principal); err != nil {
		return nil, err
	}
	counts, err := s.outcomes.CountByEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.OutcomeStats{EventID: id, Counts: counts}, nil
}
