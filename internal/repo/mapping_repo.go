package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Journey/internal/domain"
)

// MappingRepo — репозиторий таблиц привязок prefill.
//
// Таблица blueprint хранится одним JSONB значением и заменяется целиком:
// так читатели никогда не видят частично применённое изменение.
type MappingRepo struct {
	pool *pgxpool.Pool
}

// NewMappingRepo создаёт новый MappingRepo.
func NewMappingRepo(pool *pgxpool.Pool) *MappingRepo {
	return &MappingRepo{pool: pool}
}

// Get возвращает таблицу привязок blueprint.
// Если таблица ещё не сохранялась, возвращается пустая.
func (r *MappingRepo) Get(ctx context.Context, blueprintID uuid.UUID) (domain.PrefillMappingTable, error) {
	var tableJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT mappings FROM prefill_mappings WHERE blueprint_id = $1
	`, blueprintID).Scan(&tableJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PrefillMappingTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mappings: %w", err)
	}

	table := domain.PrefillMappingTable{}
	if err := json.Unmarshal(tableJSON, &table); err != nil {
		return nil, fmt.Errorf("unmarshal mappings: %w", err)
	}
	return table, nil
}

// Put сохраняет таблицу привязок blueprint, заменяя предыдущую.
func (r *MappingRepo) Put(ctx context.Context, blueprintID uuid.UUID, table domain.PrefillMappingTable) error {
	if table == nil {
		table = domain.PrefillMappingTable{}
	}
	tableJSON, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO prefill_mappings (blueprint_id, mappings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (blueprint_id)
		DO UPDATE SET mappings = EXCLUDED.mappings, updated_at = EXCLUDED.updated_at
	`, blueprintID, tableJSON)
	if err != nil {
		return fmt.Errorf("put mappings: %w", err)
	}
	return nil
}
