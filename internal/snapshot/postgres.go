package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"credchain/pkg/platform/sentinel"
)

// PostgresStore keeps the snapshot in a single row keyed by chain
// name, upserted on every save. Multiple vaults can share one
// database by using distinct names.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

func NewPostgresStore(pool *pgxpool.Pool, name string) *PostgresStore {
	if name == "" {
		name = "default"
	}
	return &PostgresStore{pool: pool, name: name}
}

// EnsureSchema creates the snapshot table when it does not exist yet.
// Call once at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chain_snapshots (
			name       TEXT PRIMARY KEY,
			blob       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, blob []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chain_snapshots (name, blob, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`,
		s.name, blob)
	if err != nil {
		return fmt.Errorf("save snapshot to postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx,
		`SELECT blob FROM chain_snapshots WHERE name = $1`, s.name).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot from postgres: %w", err)
	}
	return blob, nil
}
