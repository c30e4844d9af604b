package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LinkesAuge/duneatlas/internal/poi"
)

func (s *Store) ListGridSquares(ctx context.Context) ([]poi.GridSquare, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT coordinate, screenshot, explored
		FROM grid_squares
		ORDER BY coordinate
	`)
	if err != nil {
		return nil, fmt.Errorf("list grid squares: %w", err)
	}
	defer rows.Close()

	var squares []poi.GridSquare
	for rows.Next() {
		var sq poi.GridSquare
		if err := rows.Scan(&sq.Coordinate, &sq.Screenshot, &sq.IsExplored); err != nil {
			return nil, fmt.Errorf("list grid squares scan: %w", err)
		}
		squares = append(squares, sq)
	}
	return squares, rows.Err()
}

func (s *Store) GetGridSquare(ctx context.Context, coordinate string) (*poi.GridSquare, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var sq poi.GridSquare
	err := s.pool.QueryRow(ctx, `
		SELECT coordinate, screenshot, explored
		FROM grid_squares
		WHERE coordinate = $1
	`, coordinate).Scan(&sq.Coordinate, &sq.Screenshot, &sq.IsExplored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSquareNotFound
		}
		return nil, fmt.Errorf("get grid square: %w", err)
	}
	return &sq, nil
}

// PutGridScreenshot replaces the square's screenshot and marks it
// explored. The displaced record comes back so its artifacts can be
// deleted once the update has landed.
func (s *Store) PutGridScreenshot(ctx context.Context, coordinate string, shot poi.Screenshot) (*poi.Screenshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("put grid screenshot: %w", err)
	}
	defer tx.Rollback(ctx)

	var old *poi.Screenshot
	err = tx.QueryRow(ctx, `
		SELECT screenshot FROM grid_squares WHERE coordinate = $1 FOR UPDATE
	`, coordinate).Scan(&old)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSquareNotFound
		}
		return nil, fmt.Errorf("put grid screenshot: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE grid_squares
		SET screenshot = $2, explored = TRUE, updated_at = now()
		WHERE coordinate = $1
	`, coordinate, shot)
	if err != nil {
		return nil, fmt.Errorf("put grid screenshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("put grid screenshot: %w", err)
	}
	return old, nil
}

func (s *Store) SetExplored(ctx context.Context, coordinate string, explored bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE grid_squares SET explored = $2, updated_at = now()
		WHERE coordinate = $1
	`, coordinate, explored)
	if err != nil {
		return fmt.Errorf("set explored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSquareNotFound
	}
	return nil
}
