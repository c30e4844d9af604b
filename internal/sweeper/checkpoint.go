package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCheckpoint implements Checkpoint on the sweep_checkpoints
// table.
type PostgresCheckpoint struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresCheckpoint creates a checkpoint under the given name. One
// name per sweeper instance.
func NewPostgresCheckpoint(pool *pgxpool.Pool, name string) *PostgresCheckpoint {
	return &PostgresCheckpoint{pool: pool, name: name}
}

// RunMigration creates the checkpoint table. Idempotent.
func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sweep_checkpoints (
			name         TEXT PRIMARY KEY,
			swept_at     TIMESTAMPTZ NOT NULL,
			last_deleted INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate sweep checkpoints: %w", err)
	}
	return nil
}

func (c *PostgresCheckpoint) Load(ctx context.Context) (time.Time, error) {
	var sweptAt time.Time
	err := c.pool.QueryRow(ctx,
		`SELECT swept_at FROM sweep_checkpoints WHERE name = $1`, c.name).Scan(&sweptAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("load sweep checkpoint: %w", err)
	}
	return sweptAt, nil
}

func (c *PostgresCheckpoint) Save(ctx context.Context, sweptAt time.Time, deleted int) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO sweep_checkpoints (name, swept_at, last_deleted)
		VALUES ($1, $2, $3)
		ON CONFLICT (name)
		DO UPDATE SET swept_at = $2, last_deleted = $3
	`, c.name, sweptAt, deleted)
	if err != nil {
		return fmt.Errorf("save sweep checkpoint: %w", err)
	}
	return nil
}
