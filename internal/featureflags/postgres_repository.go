package featureflags

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/airaware/airaware/internal/database"
)

const (
	selectFlagsSQL = `SELECT key, value, updated_at FROM feature_flags ORDER BY key`

	upsertFlagSQL = `
	INSERT INTO feature_flags (key, value, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET
		value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at`
)

// PostgresRepository stores flags in the feature_flags table, shared by
// every API instance.
type PostgresRepository struct {
	db database.DB
}

func NewPostgresRepository(db database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanFlag(row pgx.CollectableRow) (*Flag, error) {
	var (
		f   Flag
		raw []byte
	)
	if err := row.Scan(&f.Key, &raw, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &f.Value); err != nil {
		return nil, fmt.Errorf("decoding flag %s: %w", f.Key, err)
	}
	return &f, nil
}

// GetAllFlags reads every stored row.
func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.db.Query(ctx, selectFlagsSQL)
	if err != nil {
		return nil, fmt.Errorf("query feature flags: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanFlag)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*Flag, len(list))
	for _, f := range list {
		out[f.Key] = f
	}
	return out, nil
}

// SetFlags upserts flags in one transaction. A zero UpdatedAt is stamped
// with the current time.
func (r *PostgresRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	now := time.Now()
	for _, f := range flags {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encoding flag %s: %w", f.Key, err)
		}
		at := f.UpdatedAt
		if at.IsZero() {
			at = now
		}
		if _, err := tx.Exec(ctx, upsertFlagSQL, f.Key, raw, at); err != nil {
			return fmt.Errorf("saving flag %s: %w", f.Key, err)
		}
	}
	return tx.Commit(ctx)
}

var _ Repository = (*PostgresRepository)(nil)
