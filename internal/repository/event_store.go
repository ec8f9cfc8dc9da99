package repository

import (
	"context"

	"go-gin-event-admission/internal/model"

	"github.com/google/uuid"
)

// EventStore is the persistence boundary for the event aggregate.
//
// Register, Unregister, AppendPhoto and AppendVideos are each a single atomic
// conditional update: the check and the mutation are evaluated by the store in
// one indivisible step. Every write against a missing event returns
// apperrors.ErrEventNotFound and never re-creates the event.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	ListByCreator(ctx context.Context, creator string) ([]*model.Event, error)
	ListRegistered(ctx context.Context, principal string) ([]*model.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Register adds principal when it is not yet a member and the event is not
	// full. Fails with ErrAlreadyRegistered, ErrEventFull, ErrEventNotFound or,
	// when the outcome could not be determined, ErrStoreConflict.
	Register(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error)
	// Unregister removes principal. Fails with ErrNotRegistered or ErrEventNotFound.
	Unregister(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error)

	// AppendPhoto appends ref to photos and increments upload_count by one.
	AppendPhoto(ctx context.Context, id uuid.UUID, ref string) (*model.MediaCount, error)
	// AppendVideos appends refs to videos and increments video_count by len(refs).
	AppendVideos(ctx context.Context, id uuid.UUID, refs []string) (*model.MediaCount, error)
}
