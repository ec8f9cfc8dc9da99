package repository

import (
	"context"
	"fmt"

	"go-gin-event-admission/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutcomeRepository persists the moderation outcome log.
type OutcomeRepository interface {
	// Record is idempotent on RequestID, so a redelivered outcome is stored once.
	Record(ctx context.Context, outcome *model.ModerationOutcome) error
	ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.ModerationOutcome, error)
	CountByEvent(ctx context.Context, eventID uuid.UUID) (map[model.OutcomeStatus]int, error)
}

type OutcomeRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewOutcomeRepository(pool *pgxpool.Pool) OutcomeRepository {
	return &OutcomeRepositoryImpl{
		pool: pool,
	}
}

func (r *OutcomeRepositoryImpl) Record(ctx context.Context, outcome *model.ModerationOutcome) error {
	query := `
		INSERT INTO moderation_outcomes (
			request_id, event_id, principal, status, labels, photo_ref, created_at
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		ON CONFLICT (request_id) DO NOTHING
	`

	labels := outcome.Labels
	if labels == nil {
		labels = []model.Label{}
	}

	_, err := r.pool.Exec(ctx, query,
		outcome.RequestID, outcome.EventID, outcome.Principal, outcome.Status,
		labels, outcome.PhotoRef, outcome.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record moderation outcome: %w", err)
	}
	return nil
}

func (r *OutcomeRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.ModerationOutcome, error) {
	query := `
		SELECT id, request_id, event_id, principal, status, labels,
		       COALESCE(photo_ref, ''), created_at
		FROM moderation_outcomes
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := make([]*model.ModerationOutcome, 0)
	for rows.Next() {
		var outcome model.ModerationOutcome
		err := rows.Scan(
			&outcome.ID,
			&outcome.RequestID,
			&outcome.EventID,
			&outcome.Principal,
			&outcome.Status,
			&outcome.Labels,
			&outcome.PhotoRef,
			&outcome.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, &outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

func (r *OutcomeRepositoryImpl) CountByEvent(ctx context.Context, eventID uuid.UUID) (map[model.OutcomeStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM moderation_outcomes
		WHERE event_id = $1
		GROUP BY status
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.OutcomeStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[model.OutcomeStatus(status)] = count
	}

	return counts, rows.Err()
}
