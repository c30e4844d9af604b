package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/LinkesAuge/duneatlas/internal/poi"
)

func (s *Store) ListBaseMaps(ctx context.Context) ([]poi.BaseMap, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, image_url, is_active, created_at
		FROM base_maps
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list base maps: %w", err)
	}
	defer rows.Close()

	var maps []poi.BaseMap
	for rows.Next() {
		var m poi.BaseMap
		if err := rows.Scan(&m.ID, &m.Name, &m.ImageURL, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("list base maps scan: %w", err)
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

func (s *Store) CreateBaseMap(ctx context.Context, m *poi.BaseMap) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO base_maps (id, name, image_url, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, m.ID, m.Name, m.ImageURL, m.IsActive).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create base map: %w", err)
	}
	return nil
}

// ActivateBaseMap flips the named map active and every other map
// inactive in one statement, so two concurrent activations can never
// leave two maps active.
func (s *Store) ActivateBaseMap(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM base_maps WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("activate base map: %w", err)
	}
	if !exists {
		return ErrMapNotFound
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE base_maps SET is_active = (id = $1)`, id)
	if err != nil {
		return fmt.Errorf("activate base map: %w", err)
	}
	return nil
}

func (s *Store) DeleteBaseMap(ctx context.Context, id uuid.UUID) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var imageURL string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM base_maps WHERE id = $1 RETURNING image_url`, id).Scan(&imageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMapNotFound
		}
		return "", fmt.Errorf("delete base map: %w", err)
	}
	return imageURL, nil
}

func (s *Store) ListOverlays(ctx context.Context) ([]poi.Overlay, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, image_url, opacity, display_order, created_at
		FROM map_overlays
		ORDER BY display_order, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	defer rows.Close()

	var overlays []poi.Overlay
	for rows.Next() {
		var o poi.Overlay
		err := rows.Scan(&o.ID, &o.Name, &o.ImageURL, &o.Opacity, &o.DisplayOrder, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("list overlays scan: %w", err)
		}
		overlays = append(overlays, o)
	}
	return overlays, rows.Err()
}

func (s *Store) CreateOverlay(ctx context.Context, o *poi.Overlay) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO map_overlays (id, name, image_url, opacity, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, o.ID, o.Name, o.ImageURL, o.Opacity, o.DisplayOrder).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	return nil
}

func (s *Store) UpdateOverlay(ctx context.Context, id uuid.UUID, patch OverlayPatch) (*poi.Overlay, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	set := []string{}
	args := []any{id}
	if patch.Opacity != nil {
		args = append(args, *patch.Opacity)
		set = append(set, fmt.Sprintf("opacity = $%d", len(args)))
	}
	if patch.DisplayOrder != nil {
		args = append(args, *patch.DisplayOrder)
		set = append(set, fmt.Sprintf("display_order = $%d", len(args)))
	}
	if len(set) == 0 {
		set = append(set, "opacity = opacity")
	}

	query := fmt.Sprintf(`
		UPDATE map_overlays SET %s WHERE id = $1
		RETURNING id, name, image_url, opacity, display_order, created_at
	`, strings.Join(set, ", "))

	var o poi.Overlay
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&o.ID, &o.Name, &o.ImageURL, &o.Opacity, &o.DisplayOrder, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMapNotFound
		}
		return nil, fmt.Errorf("update overlay: %w", err)
	}
	return &o, nil
}

func (s *Store) DeleteOverlay(ctx context.Context, id uuid.UUID) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var imageURL string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM map_overlays WHERE id = $1 RETURNING image_url`, id).Scan(&imageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMapNotFound
		}
		return "", fmt.Errorf("delete overlay: %w", err)
	}
	return imageURL, nil
}
