package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Journey/internal/domain"
)

// BlueprintRepo — репозиторий для работы с blueprints.
type BlueprintRepo struct {
	pool *pgxpool.Pool
}

// NewBlueprintRepo создаёт новый BlueprintRepo.
func NewBlueprintRepo(pool *pgxpool.Pool) *BlueprintRepo {
	return &BlueprintRepo{pool: pool}
}

const blueprintColumns = `id, name, description, graph, global_data, webhook_url, created_at, updated_at`

// Create создаёт новый blueprint.
func (r *BlueprintRepo) Create(ctx context.Context, bp *domain.Blueprint) error {
	graphJSON, globalJSON, err := marshalBlueprint(bp)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO blueprints (` + blueprintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		bp.ID,
		bp.Name,
		bp.Description,
		graphJSON,
		globalJSON,
		nullString(bp.WebhookURL),
		bp.CreatedAt,
		bp.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert blueprint: %w", err)
	}
	return nil
}

// GetByID возвращает blueprint по ID.
func (r *BlueprintRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Blueprint, error) {
	query := `SELECT ` + blueprintColumns + ` FROM blueprints WHERE id = $1`
	return scanBlueprint(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает blueprint по имени.
func (r *BlueprintRepo) GetByName(ctx context.Context, name string) (*domain.Blueprint, error) {
	query := `SELECT ` + blueprintColumns + ` FROM blueprints WHERE name = $1`
	return scanBlueprint(r.pool.QueryRow(ctx, query, name))
}

// List возвращает все blueprints.
func (r *BlueprintRepo) List(ctx context.Context) ([]domain.Blueprint, error) {
	query := `SELECT ` + blueprintColumns + ` FROM blueprints ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	defer rows.Close()

	var blueprints []domain.Blueprint
	for rows.Next() {
		bp, err := scanBlueprint(rows)
		if err != nil {
			return nil, err
		}
		blueprints = append(blueprints, *bp)
	}
	return blueprints, rows.Err()
}

// Update обновляет blueprint.
func (r *BlueprintRepo) Update(ctx context.Context, bp *domain.Blueprint) error {
	graphJSON, globalJSON, err := marshalBlueprint(bp)
	if err != nil {
		return err
	}

	query := `
		UPDATE blueprints
		SET name = $2, description = $3, graph = $4, global_data = $5,
		    webhook_url = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		bp.ID,
		bp.Name,
		bp.Description,
		graphJSON,
		globalJSON,
		nullString(bp.WebhookURL),
		bp.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update blueprint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет blueprint (каскадно удалит mappings, journeys, reports).
func (r *BlueprintRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM blueprints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blueprint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func marshalBlueprint(bp *domain.Blueprint) (graphJSON, globalJSON []byte, err error) {
	graphJSON, err = json.Marshal(bp.Graph)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal graph: %w", err)
	}

	global := bp.GlobalData
	if global == nil {
		global = domain.GlobalData{}
	}
	globalJSON, err = json.Marshal(global)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal global data: %w", err)
	}
	return graphJSON, globalJSON, nil
}

// scanBlueprint сканирует одну строку в Blueprint.
// pgx.Rows реализует pgx.Row, поэтому функция подходит и для QueryRow, и для Query.
func scanBlueprint(row pgx.Row) (*domain.Blueprint, error) {
	var bp domain.Blueprint
	var graphJSON, globalJSON []byte
	var webhookURL *string

	err := row.Scan(
		&bp.ID,
		&bp.Name,
		&bp.Description,
		&graphJSON,
		&globalJSON,
		&webhookURL,
		&bp.CreatedAt,
		&bp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan blueprint: %w", err)
	}

	if err := json.Unmarshal(graphJSON, &bp.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	if globalJSON != nil {
		if err := json.Unmarshal(globalJSON, &bp.GlobalData); err != nil {
			return nil, fmt.Errorf("unmarshal global data: %w", err)
		}
	}
	if webhookURL != nil {
		bp.WebhookURL = *webhookURL
	}

	return &bp, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation проверяет нарушение уникального индекса (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
