package mocks

import (
	"context"

	"go-gin-event-admission/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type EventStoreMock struct {
	mock.Mock
}

func NewEventStoreMock() *EventStoreMock {
	return &EventStoreMock{}
}

func (m *EventStoreMock) event(args mock.Arguments) (*model.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventStoreMock) events(args mock.Arguments) ([]*model.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventStoreMock) attendance(args mock.Arguments) (*model.Attendance, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attendance), args.Error(1)
}

func (m *EventStoreMock) count(args mock.Arguments) (*model.MediaCount, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MediaCount), args.Error(1)
}

func (m *EventStoreMock) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	return m.event(m.Called(ctx, event))
}

func (m *EventStoreMock) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return m.event(m.Called(ctx, id))
}

func (m *EventStoreMock) List(ctx context.Context) ([]*model.Event, error) {
	return m.events(m.Called(ctx))
}

func (m *EventStoreMock) ListByCreator(ctx context.Context, creator string) ([]*model.Event, error) {
	return m.events(m.Called(ctx, creator))
}

func (m *EventStoreMock) ListRegistered(ctx context.Context, principal string) ([]*model.Event, error) {
	return m.events(m.Called(ctx, principal))
}

func (m *EventStoreMock) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *EventStoreMock) Register(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error) {
	return m.attendance(m.Called(ctx, id, principal))
}

func (m *EventStoreMock) Unregister(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error) {
	return m.attendance(m.Called(ctx, id, principal))
}

func (m *EventStoreMock) AppendPhoto(ctx context.Context, id uuid.UUID, ref string) (*model.MediaCount, error) {
	return m.count(m.Called(ctx, id, ref))
}

func (m *EventStoreMock) AppendVideos(ctx context.Context, id uuid.UUID, refs []string) (*model.MediaCount, error) {
	return m.count(m.Called(ctx, id, refs))
}

type OutcomeRepositoryMock struct {
	mock.Mock
}

func NewOutcomeRepositoryMock() *OutcomeRepositoryMock {
	return &OutcomeRepositoryMock{}
}

func (m *OutcomeRepositoryMock) Record(ctx context.Context, outcome *model.ModerationOutcome) error {
	return m.Called(ctx, outcome).Error(0)
}

func (m *OutcomeRepositoryMock) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.ModerationOutcome, error) {
	args := m.Called(ctx, eventID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ModerationOutcome), args.Error(1)
}

func (m *OutcomeRepositoryMock) CountByEvent(ctx context.Context, eventID uuid.UUID) (map[model.OutcomeStatus]int, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.OutcomeStatus]int), args.Error(1)
}
