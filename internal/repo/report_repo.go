package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Journey/internal/domain"
)

// ReportRepo — репозиторий отчётов о полноте привязок.
type ReportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo создаёт новый ReportRepo.
func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// Replace заменяет отчёт blueprint одной транзакцией.
func (r *ReportRepo) Replace(ctx context.Context, blueprintID uuid.UUID, reports []domain.CompletenessReport) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM completeness_reports WHERE blueprint_id = $1`, blueprintID); err != nil {
		return fmt.Errorf("delete reports: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rep := range reports {
		batch.Queue(`
			INSERT INTO completeness_reports
				(blueprint_id, node_id, form_name, required, missing, complete, checked_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, blueprintID, rep.NodeID, rep.FormName, rep.Required, rep.Missing, rep.Complete, rep.CheckedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert reports: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListByBlueprint возвращает последний отчёт blueprint.
func (r *ReportRepo) ListByBlueprint(ctx context.Context, blueprintID uuid.UUID) ([]domain.CompletenessReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT blueprint_id, node_id, form_name, required, missing, complete, checked_at
		FROM completeness_reports
		WHERE blueprint_id = $1
		ORDER BY form_name
	`, blueprintID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.CompletenessReport
	for rows.Next() {
		var rep domain.CompletenessReport
		if err := rows.Scan(
			&rep.BlueprintID,
			&rep.NodeID,
			&rep.FormName,
			&rep.Required,
			&rep.Missing,
			&rep.Complete,
			&rep.CheckedAt,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
