package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-gin-event-admission/internal/model"
	apperrors "go-gin-event-admission/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, creator, title, description, category, event_type, location, venue,
		start_date, end_date, ticket_price, max_attendees, current_attendees, registrations,
		photos, upload_count, videos, video_count, status, created_at, updated_at`

type PostgresEventStore struct {
	pool *pgxpool.Pool
}

var _ EventStore = (*PostgresEventStore)(nil)

func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{
		pool: pool,
	}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Creator,
		&event.Title,
		&event.Description,
		&event.Category,
		&event.EventType,
		&event.Location,
		&event.Venue,
		&event.StartDate,
		&event.EndDate,
		&event.TicketPrice,
		&event.MaxAttendees,
		&event.CurrentAttendees,
		&event.Registrations,
		&event.Photos,
		&event.UploadCount,
		&event.Videos,
		&event.VideoCount,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *PostgresEventStore) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*model.Event, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *PostgresEventStore) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			id, creator, title, description, category, event_type, location, venue,
			start_date, end_date, ticket_price, max_attendees, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + eventColumns

	created, err := scanEvent(r.pool.QueryRow(ctx, query,
		event.ID, event.Creator, event.Title, event.Description, event.Category, event.EventType,
		event.Location, event.Venue, event.StartDate, event.EndDate, event.TicketPrice,
		event.MaxAttendees, event.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

func (r *PostgresEventStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *PostgresEventStore) List(ctx context.Context) ([]*model.Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
}

func (r *PostgresEventStore) ListByCreator(ctx context.Context, creator string) ([]*model.Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE creator = $1 ORDER BY created_at DESC`, creator)
}

func (r *PostgresEventStore) ListRegistered(ctx context.Context, principal string) ([]*model.Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE $1 = ANY(registrations) ORDER BY start_date ASC`, principal)
}

func (r *PostgresEventStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

// Register is one conditional UPDATE: membership, capacity and the append are
// evaluated against the row version the update locks, so two requests racing
// for the last slot cannot both succeed.
func (r *PostgresEventStore) Register(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error) {
	query := `
		UPDATE events
		SET registrations = array_append(registrations, $2),
			current_attendees = cardinality(registrations) + 1,
			updated_at = $3
		WHERE id = $1
		  AND current_attendees < max_attendees
		  AND NOT ($2 = ANY(registrations))
		RETURNING current_attendees, max_attendees
	`

	attendance := &model.Attendance{EventID: id, Principal: principal, Registered: true}
	err := r.pool.QueryRow(ctx, query, id, principal, time.Now().UTC()).Scan(
		&attendance.CurrentAttendees,
		&attendance.MaxAttendees,
	)
	if err == nil {
		return attendance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	// the update matched nothing, find out which condition failed
	current, max, member, err := r.membership(ctx, id, principal)
	if err != nil {
		return nil, err
	}
	switch {
	case member:
		return nil, apperrors.ErrAlreadyRegistered
	case current >= max:
		return nil, apperrors.ErrEventFull
	default:
		return nil, apperrors.ErrStoreConflict
	}
}

func (r *PostgresEventStore) Unregister(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error) {
	query := `
		UPDATE events
		SET registrations = array_remove(registrations, $2),
			current_attendees = cardinality(registrations) - 1,
			updated_at = $3
		WHERE id = $1
		  AND $2 = ANY(registrations)
		RETURNING current_attendees, max_attendees
	`

	attendance := &model.Attendance{EventID: id, Principal: principal, Registered: false}
	err := r.pool.QueryRow(ctx, query, id, principal, time.Now().UTC()).Scan(
		&attendance.CurrentAttendees,
		&attendance.MaxAttendees,
	)
	if err == nil {
		return attendance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to unregister: %w", err)
	}

	_, _, member, err := r.membership(ctx, id, principal)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperrors.ErrStoreConflict
	}
	return nil, apperrors.ErrNotRegistered
}

func (r *PostgresEventStore) membership(ctx context.Context, id uuid.UUID, principal string) (current, max int, member bool, err error) {
	query := `
		SELECT current_attendees, max_attendees, $2 = ANY(registrations)
		FROM events
		WHERE id = $1
	`
	err = r.pool.QueryRow(ctx, query, id, principal).Scan(&current, &max, &member)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, apperrors.ErrEventNotFound
		}
		return 0, 0, false, err
	}
	return current, max, member, nil
}

func (r *PostgresEventStore) AppendPhoto(ctx context.Context, id uuid.UUID, ref string) (*model.MediaCount, error) {
	query := `
		UPDATE events
		SET photos = array_append(photos, $2),
			upload_count = upload_count + 1,
			updated_at = $3
		WHERE id = $1
		RETURNING upload_count, video_count
	`

	var count model.MediaCount
	err := r.pool.QueryRow(ctx, query, id, ref, time.Now().UTC()).Scan(&count.UploadCount, &count.VideoCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to append photo: %w", err)
	}
	return &count, nil
}

func (r *PostgresEventStore) AppendVideos(ctx context.Context, id uuid.UUID, refs []string) (*model.MediaCount, error) {
	if len(refs) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	query := `
		UPDATE events
		SET videos = videos || $2::text[],
			video_count = video_count + cardinality($2::text[]),
			updated_at = $3
		WHERE id = $1
		RETURNING upload_count, video_count
	`

	var count model.MediaCount
	err := r.pool.QueryRow(ctx, query, id, refs, time.Now().UTC()).Scan(&count.UploadCount, &count.VideoCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to append videos: %w", err)
	}
	return &count, nil
}
