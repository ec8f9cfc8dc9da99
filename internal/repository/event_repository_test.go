package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go-gin-event-admission/internal/model"
	apperrors "go-gin-event-admission/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresEventStore_CreateAndFind(t *testing.T) {
	store := NewPostgresEventStore(setupTestWithTruncate(t))
	ctx := context.Background()

	created, err := store.Create(ctx, newTestEvent("creator-1", 3))
	require.NoError(t, err)
	assert.Equal(t, "creator-1", created.Creator)
	assert.Equal(t, 0, created.CurrentAttendees)
	assert.Empty(t, created.Registrations)
	assert.NotZero(t, created.CreatedAt)

	found, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.NoError(t, found.CheckInvariants())

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestPostgresEventStore_Register(t *testing.T) {
	store := NewPostgresEventStore(setupTestWithTruncate(t))
	ctx := context.Background()

	event, err := store.Create(ctx, newTestEvent("creator-1", 1))
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		attendance, err := store.Register(ctx, event.ID, "alice")
		require.NoError(t, err)
		assert.True(t, attendance.Registered)
		assert.Equal(t, 1, attendance.CurrentAttendees)
		assert.Equal(t, 1, attendance.MaxAttendees)
	})

	t.Run("AlreadyRegistered", func(t *testing.T) {
		_, err := store.Register(ctx, event.ID, "alice")
		assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	})

	t.Run("Full", func(t *testing.T) {
		_, err := store.Register(ctx, event.ID, "bob")
		assert.ErrorIs(t, err, apperrors.ErrEventFull)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Register(ctx, uuid.New(), "bob")
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	found, err := store.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, found.Registrations)
}

func TestPostgresEventStore_Register_Concurrent(t *testing.T) {
	store := NewPostgresEventStore(setupTestWithTruncate(t))
	ctx := context.Background()

	event, err := store.Create(ctx, newTestEvent("creator-1", 10))
	require.NoError(t, err)

	const workers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Register(ctx, event.ID, fmt.Sprintf("user-%d", i))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrEventFull)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	found, err := store.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, found.CurrentAttendees)
	assert.NoError(t, found.CheckInvariants())
}

func TestPostgresEventStore_Unregister(t *testing.T) {
	store := NewPostgresEventStore(setupTestWithTruncate(t))
	ctx := context.Background()

	event, err := store.Create(ctx, newTestEvent("creator-1", 2))
	require.NoError(t, err)
	_, err = store.Register(ctx, event.ID, "alice")
	require.NoError(t, err)

	attendance, err := store.Unregister(ctx, event.ID, "alice")
	require.NoError(t, err)
	assert.False(t, attendance.Registered)
	assert.Equal(t, 0, attendance.CurrentAttendees)

	_, err = store.Unregister(ctx, event.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotRegistered)

	_, err = store.Unregister(ctx, uuid.New(), "alice")
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestPostgresEventStore_AppendMedia(t *testing.T) {
	store := NewPostgresEventStore(setupTestWithTruncate(t))
	ctx := context.Background()

	event, err := store.Create(ctx, newTestEvent("creator-1", 2))
	require.NoError(t, err)

	count, err := store.AppendPhoto(ctx, event.ID, "event-photos/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, count.UploadCount)

	count, err = store.AppendVideos(ctx, event.ID, []string{"event-videos/a.mp4", "event-videos/b.mp4"})
	require.NoError(t, err)
	assert.Equal(t, 1, count.UploadCount)
	assert.Equal(t, 2, count.VideoCount)

	found, err := store.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"event-photos/a.jpg"}, found.Photos)
	assert.NoError(t, found.CheckInvariants())

	// a deleted event is never re-created by an append
	require.NoError(t, store.Delete(ctx, event.ID))
	_, err = store.AppendPhoto(ctx, event.ID, "event-photos/b.jpg")
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	_, err = store.FindByID(ctx, event.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestPostgresEventStore_Lists(t *testing.T) {
	store := NewPostgresEventStore(setupTestWithTruncate(t))
	ctx := context.Background()

	first, err := store.Create(ctx, newTestEvent("creator-1", 5))
	require.NoError(t, err)
	_, err = store.Create(ctx, newTestEvent("creator-2", 5))
	require.NoError(t, err)
	_, err = store.Register(ctx, first.ID, "alice")
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListByCreator(ctx, "creator-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	registered, err := store.ListRegistered(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, registered, 1)
	assert.Equal(t, first.ID, registered[0].ID)

	none, err := store.ListRegistered(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOutcomeRepository_RecordAndCount(t *testing.T) {
	repo := NewOutcomeRepository(setupTestWithTruncate(t))
	ctx := context.Background()
	eventID := uuid.New()

	outcomes := []*model.ModerationOutcome{
		{RequestID: "r1", EventID: eventID, Principal: "alice", Status: model.OutcomeAccepted, PhotoRef: "event-photos/a.jpg"},
		{RequestID: "r2", EventID: eventID, Principal: "alice", Status: model.OutcomeNotRelevant, Labels: []model.Label{{Name: "Cat", Confidence: 99}}},
		{RequestID: "r2", EventID: eventID, Principal: "alice", Status: model.OutcomeNotRelevant},
	}
	for _, o := range outcomes {
		require.NoError(t, repo.Record(ctx, o))
	}

	counts, err := repo.CountByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.OutcomeAccepted])
	assert.Equal(t, 1, counts[model.OutcomeNotRelevant])

	listed, err := repo.ListByEvent(ctx, eventID, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
