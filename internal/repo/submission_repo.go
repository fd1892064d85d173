package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Journey/internal/domain"
)

// SubmissionRepo — репозиторий отправленных форм и вычисленных prefill-значений.
type SubmissionRepo struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepo создаёт новый SubmissionRepo.
func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

// Save сохраняет отправку формы.
// Повторная отправка того же узла заменяет данные.
func (r *SubmissionRepo) Save(ctx context.Context, s *domain.Submission) error {
	dataJSON, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("marshal submission data: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO submissions (journey_id, node_id, form_id, data, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (journey_id, node_id)
		DO UPDATE SET form_id = EXCLUDED.form_id, data = EXCLUDED.data,
		              submitted_at = EXCLUDED.submitted_at
	`, s.JourneyID, s.NodeID, s.FormID, dataJSON, s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

// ListByJourney возвращает отправки journey в порядке времени.
func (r *SubmissionRepo) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]domain.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT journey_id, node_id, form_id, data, submitted_at
		FROM submissions
		WHERE journey_id = $1
		ORDER BY submitted_at ASC
	`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var s domain.Submission
		var dataJSON []byte
		if err := rows.Scan(&s.JourneyID, &s.NodeID, &s.FormID, &dataJSON, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(dataJSON, &s.Data); err != nil {
			return nil, fmt.Errorf("unmarshal submission data: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ReplacePrefills заменяет вычисленные значения узла одной транзакцией.
func (r *SubmissionRepo) ReplacePrefills(ctx context.Context, journeyID uuid.UUID, nodeID domain.NodeID, prefills []domain.Prefill) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM prefills WHERE journey_id = $1 AND node_id = $2
	`, journeyID, nodeID); err != nil {
		return fmt.Errorf("delete prefills: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range prefills {
		valueJSON, err := json.Marshal(p.Value)
		if err != nil {
			return fmt.Errorf("marshal prefill value: %w", err)
		}
		batch.Queue(`
			INSERT INTO prefills (journey_id, node_id, field_id, value, source, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.JourneyID, p.NodeID, p.FieldID, valueJSON, p.Source, p.ComputedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert prefills: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListPrefills возвращает вычисленные значения journey.
func (r *SubmissionRepo) ListPrefills(ctx context.Context, journeyID uuid.UUID) ([]domain.Prefill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT journey_id, node_id, field_id, value, source, computed_at
		FROM prefills
		WHERE journey_id = $1
		ORDER BY node_id, field_id
	`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("list prefills: %w", err)
	}
	defer rows.Close()

	var prefills []domain.Prefill
	for rows.Next() {
		var p domain.Prefill
		var valueJSON []byte
		if err := rows.Scan(&p.JourneyID, &p.NodeID, &p.FieldID, &valueJSON, &p.Source, &p.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan prefill: %w", err)
		}
		if err := json.Unmarshal(valueJSON, &p.Value); err != nil {
			return nil, fmt.Errorf("unmarshal prefill value: %w", err)
		}
		prefills = append(prefills, p)
	}
	return prefills, rows.Err()
}
