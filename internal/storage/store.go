package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/coord"
	"github.com/LinkesAuge/duneatlas/internal/poi"
)

var (
	// ErrPoiNotFound is returned when a POI lookup finds no row visible
	// to the requesting user. Invisible rows are indistinguishable from
	// absent ones.
	ErrPoiNotFound = errors.New("poi not found")

	// ErrSquareNotFound is returned for an unknown grid coordinate.
	ErrSquareNotFound = errors.New("grid square not found")

	// ErrMapNotFound is returned for an unknown base map or overlay.
	ErrMapNotFound = errors.New("map not found")

	// ErrTypeNotFound is returned for an unknown POI type.
	ErrTypeNotFound = errors.New("poi type not found")

	// ErrBadCursor is returned for a pagination cursor that does not
	// decode.
	ErrBadCursor = errors.New("invalid cursor")
)

// PoiPatch carries the mutable POI fields of an update. Nil fields are
// left untouched.
type PoiPatch struct {
	Title       *string
	Description *string
	TypeID      *uuid.UUID
	Privacy     *poi.Privacy
}

// ListPoisParams filters and paginates a POI listing.
type ListPoisParams struct {
	// Viewer is the requesting user; privacy filtering is relative to it.
	Viewer uuid.UUID
	// MapType restricts the listing to one map when set.
	MapType poi.MapType
	// GridCell restricts deep desert listings to one cell when set.
	GridCell string
	// Cursor resumes a previous page; empty starts from the newest POI.
	Cursor string
	// Limit caps the page size; zero or negative uses a default.
	Limit int
}

// PoiPage is one page of a cursor-paginated POI listing.
type PoiPage struct {
	Pois       []poi.Poi
	NextCursor string
	HasMore    bool
}

// PoiStore persists POIs with their shares and entity links.
type PoiStore interface {
	CreatePoi(ctx context.Context, p *poi.Poi) error

	// GetPoi returns the POI if it exists and is visible to viewer.
	GetPoi(ctx context.Context, id, viewer uuid.UUID) (*poi.Poi, error)

	// ListPois returns the POIs visible to the viewer, newest first.
	ListPois(ctx context.Context, params ListPoisParams) (*PoiPage, error)

	// UpdatePoi applies a patch and returns the updated POI.
	UpdatePoi(ctx context.Context, id uuid.UUID, patch PoiPatch) (*poi.Poi, error)

	// UpdatePosition commits a drag-reposition.
	UpdatePosition(ctx context.Context, id uuid.UUID, pos coord.Pixel) (*poi.Poi, error)

	// SetScreenshots replaces the POI's screenshot list.
	SetScreenshots(ctx context.Context, id uuid.UUID, shots []poi.Screenshot) error

	// DeletePoi removes the POI with its shares and entity links and
	// returns the blob URLs its screenshots referenced.
	DeletePoi(ctx context.Context, id uuid.UUID) ([]string, error)

	// SetShares replaces the share list of a shared POI.
	SetShares(ctx context.Context, id uuid.UUID, users []uuid.UUID) error

	AddEntityLink(ctx context.Context, link poi.EntityLink) error
	RemoveEntityLink(ctx context.Context, poiID, entityID uuid.UUID) error
	ListEntityLinks(ctx context.Context, poiID uuid.UUID) ([]poi.EntityLink, error)

	ListPoiTypes(ctx context.Context) ([]poi.PoiType, error)
	CreatePoiType(ctx context.Context, t *poi.PoiType) error

	// SetPoiTypeIcon replaces the type's icon reference and returns
	// the updated type.
	SetPoiTypeIcon(ctx context.Context, id uuid.UUID, icon poi.IconRef) (*poi.PoiType, error)
}

// GridStore persists the Deep Desert exploration grid.
type GridStore interface {
	ListGridSquares(ctx context.Context) ([]poi.GridSquare, error)
	GetGridSquare(ctx context.Context, coordinate string) (*poi.GridSquare, error)

	// PutGridScreenshot replaces the square's screenshot and returns the
	// record it displaced, if any, for artifact cleanup.
	PutGridScreenshot(ctx context.Context, coordinate string, shot poi.Screenshot) (*poi.Screenshot, error)

	SetExplored(ctx context.Context, coordinate string, explored bool) error
}

// MapStore persists base maps and overlays.
type MapStore interface {
	ListBaseMaps(ctx context.Context) ([]poi.BaseMap, error)
	CreateBaseMap(ctx context.Context, m *poi.BaseMap) error

	// ActivateBaseMap makes one base map active and every other
	// inactive, atomically.
	ActivateBaseMap(ctx context.Context, id uuid.UUID) error

	// DeleteBaseMap removes the map and returns its image URL.
	DeleteBaseMap(ctx context.Context, id uuid.UUID) (string, error)

	ListOverlays(ctx context.Context) ([]poi.Overlay, error)
	CreateOverlay(ctx context.Context, o *poi.Overlay) error
	UpdateOverlay(ctx context.Context, id uuid.UUID, patch OverlayPatch) (*poi.Overlay, error)
	DeleteOverlay(ctx context.Context, id uuid.UUID) (string, error)
}

// OverlayPatch carries the mutable overlay fields. Nil fields are left
// untouched.
type OverlayPatch struct {
	Opacity      *float64
	DisplayOrder *int
}

// SettingsStore persists named JSON configuration documents.
type SettingsStore interface {
	// GetSetting unmarshals the named document into dst. Returns false
	// with no error when the document does not exist.
	GetSetting(ctx context.Context, name string, dst any) (bool, error)

	// PutSetting upserts the named document.
	PutSetting(ctx context.Context, name string, v any) error
}

// Referencer reports every blob URL the database references. The
// sweeper treats unreferenced blobs as orphans.
type Referencer interface {
	ReferencedImageURLs(ctx context.Context) ([]string, error)
}
