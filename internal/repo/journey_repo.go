package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Journey/internal/domain"
)

// JourneyRepo — репозиторий для работы с journeys.
type JourneyRepo struct {
	pool *pgxpool.Pool
}

// NewJourneyRepo создаёт новый JourneyRepo.
func NewJourneyRepo(pool *pgxpool.Pool) *JourneyRepo {
	return &JourneyRepo{pool: pool}
}

// Create создаёт новый journey.
func (r *JourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	query := `
		INSERT INTO journeys (id, blueprint_id, status, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		j.ID,
		j.BlueprintID,
		j.Status,
		j.CreatedAt,
		j.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journey: %w", err)
	}
	return nil
}

// GetByID возвращает journey по ID.
func (r *JourneyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error) {
	query := `
		SELECT id, blueprint_id, status, created_at, finished_at
		FROM journeys
		WHERE id = $1
	`
	return scanJourney(r.pool.QueryRow(ctx, query, id))
}

// Update обновляет статус journey.
// Journey в финальном статусе не меняется: возвращается ErrInvalidState.
func (r *JourneyRepo) Update(ctx context.Context, j *domain.Journey) error {
	query := `
		UPDATE journeys
		SET status = $2, finished_at = $3
		WHERE id = $1 AND status = 'IN_PROGRESS'
	`
	result, err := r.pool.Exec(ctx, query, j.ID, j.Status, j.FinishedAt)
	if err != nil {
		return fmt.Errorf("update journey: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, j.ID); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// ListInProgress возвращает journeys в статусе IN_PROGRESS.
func (r *JourneyRepo) ListInProgress(ctx context.Context, limit int) ([]domain.Journey, error) {
	query := `
		SELECT id, blueprint_id, status, created_at, finished_at
		FROM journeys
		WHERE status = 'IN_PROGRESS'
		ORDER BY created_at ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ListByBlueprint возвращает journeys blueprint.
func (r *JourneyRepo) ListByBlueprint(ctx context.Context, blueprintID uuid.UUID) ([]domain.Journey, error) {
	query := `
		SELECT id, blueprint_id, status, created_at, finished_at
		FROM journeys
		WHERE blueprint_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, blueprintID)
}

func (r *JourneyRepo) list(ctx context.Context, query string, args ...any) ([]domain.Journey, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	defer rows.Close()

	var journeys []domain.Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, *j)
	}
	return journeys, rows.Err()
}

// scanJourney сканирует одну строку в Journey.
func scanJourney(row pgx.Row) (*domain.Journey, error) {
	var j domain.Journey
	var status string

	err := row.Scan(
		&j.ID,
		&j.BlueprintID,
		&status,
		&j.CreatedAt,
		&j.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan journey: %w", err)
	}

	j.Status = domain.ParseJourneyStatus(status)
	return &j, nil
}
