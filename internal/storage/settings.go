package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetSetting(ctx context.Context, name string, dst any) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM app_settings WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get setting %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("get setting %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) PutSetting(ctx context.Context, name string, v any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_settings (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = $2, updated_at = now()
	`, name, v)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", name, err)
	}
	return nil
}
