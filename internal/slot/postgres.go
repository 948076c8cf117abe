package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists slots as rows in the session_slots table.
// UPSERT semantics match the overwrite contract of Store.Save.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed slot store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, name string, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_slots (name, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE
		 SET payload = EXCLUDED.payload, updated_at = NOW()`,
		name, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM session_slots WHERE name = $1`, name,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select slot: %w", err)
	}
	return payload, nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM session_slots WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}
