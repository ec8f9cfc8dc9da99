package mocks

import (
	"context"

	"go-gin-event-admission/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type AdmissionServiceMock struct {
	mock.Mock
}

func NewAdmissionServiceMock() *AdmissionServiceMock {
	return &AdmissionServiceMock{}
}

func (m *AdmissionServiceMock) Register(ctx context.Context, eventID uuid.UUID, principal string) (*model.Attendance, error) {
	args := m.Called(ctx, eventID, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attendance), args.Error(1)
}

func (m *AdmissionServiceMock) Unregister(ctx context.Context, eventID uuid.UUID, principal string) (*model.Attendance, error) {
	args := m.Called(ctx, eventID, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attendance), args.Error(1)
}

type ModerationServiceMock struct {
	mock.Mock
}

func NewModerationServiceMock() *ModerationServiceMock {
	return &ModerationServiceMock{}
}

func (m *ModerationServiceMock) SubmitPhoto(ctx context.Context, submission model.PhotoSubmission) (*model.ModerationResult, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ModerationResult), args.Error(1)
}

func (m *ModerationServiceMock) SubmitVideos(ctx context.Context, eventID uuid.UUID, principal string, files []model.MediaFile) (*model.VideoUploadResult, error) {
	args := m.Called(ctx, eventID, principal, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VideoUploadResult), args.Error(1)
}

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func (m *EventServiceMock) Create(ctx context.Context, creator string, req model.CreateEventRequest) (*model.Event, error) {
	args := m.Called(ctx, creator, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) List(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) Delete(ctx context.Context, id uuid.UUID, principal string) error {
	args := m.Called(ctx, id, principal)
	return args.Error(0)
}

func (m *EventServiceMock) ListRegistered(ctx context.Context, principal string) ([]*model.Event, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) CreatorStats(ctx context.Context, creator string) (*model.CreatorStats, error) {
	args := m.Called(ctx, creator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreatorStats), args.Error(1)
}

func (m *EventServiceMock) ModerationStats(ctx context.Context, id uuid.UUID, principal string) (*model.OutcomeStats, error) {
	args := m.Called(ctx, id, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OutcomeStats), args.Error(1)
}
