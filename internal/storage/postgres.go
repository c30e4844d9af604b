package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LinkesAuge/duneatlas/internal/coord"
	"github.com/LinkesAuge/duneatlas/internal/poi"
)

// Store implements every storage interface on a shared PostgreSQL pool.
type Store struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewStore creates a Store. queryTimeout sets the per-query context
// deadline; zero means no timeout.
func NewStore(pool *pgxpool.Pool, queryTimeout time.Duration) *Store {
	return &Store{pool: pool, queryTimeout: queryTimeout}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

const poiColumns = `id, map_type, grid_cell, x, y, title, description,
	type_id, privacy, screenshots, created_by, created_at, updated_at`

func scanPoi(row pgx.Row) (*poi.Poi, error) {
	var p poi.Poi
	var gridCell *string
	err := row.Scan(
		&p.ID, &p.MapType, &gridCell, &p.Position.X, &p.Position.Y,
		&p.Title, &p.Description, &p.TypeID, &p.Privacy,
		&p.Screenshots, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gridCell != nil {
		p.GridCell = *gridCell
	}
	return &p, nil
}

func (s *Store) CreatePoi(ctx context.Context, p *poi.Poi) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Screenshots == nil {
		p.Screenshots = []poi.Screenshot{}
	}
	var gridCell *string
	if p.GridCell != "" {
		gridCell = &p.GridCell
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create poi: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO pois (id, map_type, grid_cell, x, y, title, description,
			type_id, privacy, screenshots, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, p.ID, p.MapType, gridCell, p.Position.X, p.Position.Y, p.Title,
		p.Description, p.TypeID, p.Privacy, p.Screenshots, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create poi: %w", err)
	}

	for _, user := range p.SharedWith {
		if _, err := tx.Exec(ctx, `
			INSERT INTO poi_shares (poi_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, p.ID, user); err != nil {
			return fmt.Errorf("create poi shares: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("create poi: %w", err)
	}
	return nil
}

func (s *Store) GetPoi(ctx context.Context, id, viewer uuid.UUID) (*poi.Poi, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := scanPoi(s.pool.QueryRow(ctx,
		`SELECT `+poiColumns+` FROM pois WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPoiNotFound
		}
		return nil, fmt.Errorf("get poi: %w", err)
	}

	p.SharedWith, err = s.loadShares(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !p.VisibleTo(viewer) {
		return nil, ErrPoiNotFound
	}
	return p, nil
}

func (s *Store) loadShares(ctx context.Context, poiID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM poi_shares WHERE poi_id = $1 ORDER BY user_id`, poiID)
	if err != nil {
		return nil, fmt.Errorf("load shares: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("load shares scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const defaultListLimit = 200

func (s *Store) ListPois(ctx context.Context, params ListPoisParams) (*PoiPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	where := []string{`(privacy = 'global'
		OR created_by = $1
		OR (privacy = 'shared' AND EXISTS (
			SELECT 1 FROM poi_shares sh
			WHERE sh.poi_id = pois.id AND sh.user_id = $1)))`}
	args := []any{params.Viewer}

	if params.MapType != "" {
		args = append(args, params.MapType)
		where = append(where, fmt.Sprintf("map_type = $%d", len(args)))
	}
	if params.GridCell != "" {
		args = append(args, params.GridCell)
		where = append(where, fmt.Sprintf("grid_cell = $%d", len(args)))
	}
	if params.Cursor != "" {
		cur, err := DecodeCursor(params.Cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		args = append(args, cur.CreatedAt, cur.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT `+poiColumns+`
		FROM pois
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pois: %w", err)
	}
	defer rows.Close()

	var pois []poi.Poi
	for rows.Next() {
		p, err := scanPoi(rows)
		if err != nil {
			return nil, fmt.Errorf("list pois scan: %w", err)
		}
		pois = append(pois, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pois rows: %w", err)
	}

	if err := s.attachShares(ctx, pois); err != nil {
		return nil, err
	}

	page := &PoiPage{Pois: pois}
	if len(pois) == limit {
		last := pois[len(pois)-1]
		next := Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		encoded, err := next.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode next cursor: %w", err)
		}
		page.NextCursor = encoded
		page.HasMore = true
	}
	return page, nil
}

// attachShares loads the share lists of every shared POI in one query.
func (s *Store) attachShares(ctx context.Context, pois []poi.Poi) error {
	byID := make(map[uuid.UUID]int)
	var ids []string
	for i := range pois {
		if pois[i].Privacy == poi.PrivacyShared {
			byID[pois[i].ID] = i
			ids = append(ids, pois[i].ID.String())
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT poi_id, user_id FROM poi_shares
		WHERE poi_id = ANY($1::uuid[])
		ORDER BY user_id
	`, ids)
	if err != nil {
		return fmt.Errorf("attach shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var poiID, user uuid.UUID
		if err := rows.Scan(&poiID, &user); err != nil {
			return fmt.Errorf("attach shares scan: %w", err)
		}
		if i, ok := byID[poiID]; ok {
			pois[i].SharedWith = append(pois[i].SharedWith, user)
		}
	}
	return rows.Err()
}

func (s *Store) UpdatePoi(ctx context.Context, id uuid.UUID, patch PoiPatch) (*poi.Poi, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	set := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.TypeID != nil {
		add("type_id", *patch.TypeID)
	}
	if patch.Privacy != nil {
		add("privacy", *patch.Privacy)
	}

	query := fmt.Sprintf(`
		UPDATE pois SET %s WHERE id = $1
		RETURNING `+poiColumns, strings.Join(set, ", "))

	p, err := scanPoi(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPoiNotFound
		}
		return nil, fmt.Errorf("update poi: %w", err)
	}
	p.SharedWith, err = s.loadShares(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) UpdatePosition(ctx context.Context, id uuid.UUID, pos coord.Pixel) (*poi.Poi, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := scanPoi(s.pool.QueryRow(ctx, `
		UPDATE pois SET x = $2, y = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+poiColumns, id, pos.X, pos.Y))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPoiNotFound
		}
		return nil, fmt.Errorf("update position: %w", err)
	}
	p.SharedWith, err = s.loadShares(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) SetScreenshots(ctx context.Context, id uuid.UUID, shots []poi.Screenshot) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if shots == nil {
		shots = []poi.Screenshot{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE pois SET screenshots = $2, updated_at = now() WHERE id = $1
	`, id, shots)
	if err != nil {
		return fmt.Errorf("set screenshots: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPoiNotFound
	}
	return nil
}

func (s *Store) DeletePoi(ctx context.Context, id uuid.UUID) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var shots []poi.Screenshot
	err := s.pool.QueryRow(ctx, `
		DELETE FROM pois WHERE id = $1 RETURNING screenshots
	`, id).Scan(&shots)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPoiNotFound
		}
		return nil, fmt.Errorf("delete poi: %w", err)
	}

	// Shares and entity links go with the row via ON DELETE CASCADE.
	seen := make(map[string]bool)
	var urls []string
	for _, shot := range shots {
		for _, u := range []string{shot.URL, shot.OriginalURL} {
			if u != "" && !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}

func (s *Store) SetShares(ctx context.Context, id uuid.UUID, users []uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("set shares: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pois WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("set shares: %w", err)
	}
	if !exists {
		return ErrPoiNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM poi_shares WHERE poi_id = $1`, id); err != nil {
		return fmt.Errorf("set shares: %w", err)
	}
	for _, user := range users {
		if _, err := tx.Exec(ctx, `
			INSERT INTO poi_shares (poi_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, user); err != nil {
			return fmt.Errorf("set shares: %w", err)
		}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE pois SET updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("set shares: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("set shares: %w", err)
	}
	return nil
}

func (s *Store) AddEntityLink(ctx context.Context, link poi.EntityLink) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO poi_entity_links (poi_id, entity_id, entity_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (poi_id, entity_id) DO UPDATE SET entity_type = $3
	`, link.PoiID, link.EntityID, link.EntityType)
	if err != nil {
		return fmt.Errorf("add entity link: %w", err)
	}
	return nil
}

func (s *Store) RemoveEntityLink(ctx context.Context, poiID, entityID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		DELETE FROM poi_entity_links WHERE poi_id = $1 AND entity_id = $2
	`, poiID, entityID)
	if err != nil {
		return fmt.Errorf("remove entity link: %w", err)
	}
	return nil
}

func (s *Store) ListEntityLinks(ctx context.Context, poiID uuid.UUID) ([]poi.EntityLink, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT poi_id, entity_id, entity_type, created_at
		FROM poi_entity_links
		WHERE poi_id = $1
		ORDER BY created_at
	`, poiID)
	if err != nil {
		return nil, fmt.Errorf("list entity links: %w", err)
	}
	defer rows.Close()

	var links []poi.EntityLink
	for rows.Next() {
		var l poi.EntityLink
		if err := rows.Scan(&l.PoiID, &l.EntityID, &l.EntityType, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("list entity links scan: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Store) ListPoiTypes(ctx context.Context) ([]poi.PoiType, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, icon_kind, icon_value, color, category, default_description
		FROM poi_types
		ORDER BY category, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list poi types: %w", err)
	}
	defer rows.Close()

	var types []poi.PoiType
	for rows.Next() {
		var t poi.PoiType
		err := rows.Scan(&t.ID, &t.Name, &t.Icon.Kind, &t.Icon.Value,
			&t.Color, &t.Category, &t.DefaultDescription)
		if err != nil {
			return nil, fmt.Errorf("list poi types scan: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *Store) CreatePoiType(ctx context.Context, t *poi.PoiType) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO poi_types (id, name, icon_kind, icon_value, color, category, default_description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.Name, t.Icon.Kind, t.Icon.Value, t.Color, t.Category, t.DefaultDescription)
	if err != nil {
		return fmt.Errorf("create poi type: %w", err)
	}
	return nil
}

func (s *Store) SetPoiTypeIcon(ctx context.Context, id uuid.UUID, icon poi.IconRef) (*poi.PoiType, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var t poi.PoiType
	err := s.pool.QueryRow(ctx, `
		UPDATE poi_types
		SET icon_kind = $2, icon_value = $3
		WHERE id = $1
		RETURNING id, name, icon_kind, icon_value, color, category, default_description
	`, id, icon.Kind, icon.Value).Scan(&t.ID, &t.Name, &t.Icon.Kind, &t.Icon.Value,
		&t.Color, &t.Category, &t.DefaultDescription)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set poi type icon: %w", err)
	}
	return &t, nil
}

// ReferencedImageURLs collects every blob URL the database still points
// at. Screenshot records contribute both the display and the original
// artifact.
func (s *Store) ReferencedImageURLs(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	rows, err := s.pool.Query(ctx, `SELECT screenshots FROM pois`)
	if err != nil {
		return nil, fmt.Errorf("referenced urls: %w", err)
	}
	for rows.Next() {
		var shots []poi.Screenshot
		if err := rows.Scan(&shots); err != nil {
			rows.Close()
			return nil, fmt.Errorf("referenced urls scan: %w", err)
		}
		for _, shot := range shots {
			add(shot.URL)
			add(shot.OriginalURL)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("referenced urls rows: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT screenshot FROM grid_squares WHERE screenshot IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("referenced urls: %w", err)
	}
	for rows.Next() {
		var shot poi.Screenshot
		if err := rows.Scan(&shot); err != nil {
			rows.Close()
			return nil, fmt.Errorf("referenced urls scan: %w", err)
		}
		add(shot.URL)
		add(shot.OriginalURL)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("referenced urls rows: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT image_url FROM base_maps
		UNION
		SELECT image_url FROM map_overlays
		UNION
		SELECT icon_value FROM poi_types WHERE icon_kind = 'url'
	`)
	if err != nil {
		return nil, fmt.Errorf("referenced urls: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("referenced urls scan: %w", err)
		}
		add(u)
	}
	return urls, rows.Err()
}
