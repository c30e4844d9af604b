package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates every table the service needs. Idempotent; runs
// at startup before the HTTP server comes up.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS poi_types (
			id                  UUID PRIMARY KEY,
			name                TEXT NOT NULL UNIQUE,
			icon_kind           TEXT NOT NULL,
			icon_value          TEXT NOT NULL,
			color               TEXT NOT NULL DEFAULT '',
			category            TEXT NOT NULL DEFAULT '',
			default_description TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS pois (
			id          UUID PRIMARY KEY,
			map_type    TEXT NOT NULL,
			grid_cell   TEXT,
			x           DOUBLE PRECISION NOT NULL,
			y           DOUBLE PRECISION NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type_id     UUID NOT NULL,
			privacy     TEXT NOT NULL,
			screenshots JSONB NOT NULL DEFAULT '[]',
			created_by  UUID NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pois_map_created
			ON pois (map_type, created_at DESC, id DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_pois_grid_cell
			ON pois (grid_cell) WHERE grid_cell IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS poi_shares (
			poi_id  UUID NOT NULL REFERENCES pois (id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			PRIMARY KEY (poi_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS poi_entity_links (
			poi_id      UUID NOT NULL REFERENCES pois (id) ON DELETE CASCADE,
			entity_id   UUID NOT NULL,
			entity_type TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (poi_id, entity_id)
		)`,

		`CREATE TABLE IF NOT EXISTS grid_squares (
			coordinate TEXT PRIMARY KEY CHECK (coordinate ~ '^[A-I][1-9]$'),
			screenshot JSONB,
			explored   BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS base_maps (
			id         UUID PRIMARY KEY,
			name       TEXT NOT NULL,
			image_url  TEXT NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS map_overlays (
			id            UUID PRIMARY KEY,
			name          TEXT NOT NULL,
			image_url     TEXT NOT NULL,
			opacity       DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			display_order INTEGER NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS app_settings (
			name       TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, ddl := range ddls {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := seedGridSquares(ctx, pool); err != nil {
		return err
	}
	return nil
}

// seedGridSquares inserts the 81 Deep Desert cells A1..I9 so updates
// never race on first touch.
func seedGridSquares(ctx context.Context, pool *pgxpool.Pool) error {
	for row := 'A'; row <= 'I'; row++ {
		for col := 1; col <= 9; col++ {
			coordinate := fmt.Sprintf("%c%d", row, col)
			_, err := pool.Exec(ctx, `
				INSERT INTO grid_squares (coordinate)
				VALUES ($1)
				ON CONFLICT (coordinate) DO NOTHING
			`, coordinate)
			if err != nil {
				return fmt.Errorf("seed grid square %s: %w", coordinate, err)
			}
		}
	}
	return nil
}
