// Package poi holds the domain model for map annotations.
package poi

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/coord"
	"github.com/LinkesAuge/duneatlas/internal/imaging"
)

// MapType identifies which base map a POI belongs to.
type MapType string

const (
	MapHaggaBasin MapType = "hagga_basin"
	MapDeepDesert MapType = "deep_desert"
)

// Size returns the pixel-space extent of the map's virtual canvas.
func (m MapType) Size() float64 {
	if m == MapDeepDesert {
		return coord.GridCellSize
	}
	return coord.HaggaBasinSize
}

// Valid reports whether the map type is known.
func (m MapType) Valid() bool {
	return m == MapHaggaBasin || m == MapDeepDesert
}

// Privacy is the visibility policy of a POI.
type Privacy string

const (
	PrivacyGlobal  Privacy = "global"  // visible to everyone
	PrivacyPrivate Privacy = "private" // owner only
	PrivacyShared  Privacy = "shared"  // explicit allow-list
)

// Valid reports whether the privacy level is known.
func (p Privacy) Valid() bool {
	return p == PrivacyGlobal || p == PrivacyPrivate || p == PrivacyShared
}

// MaxScreenshots is the per-POI attachment ceiling.
const MaxScreenshots = 5

// Screenshot is a persisted screenshot record. URL points at the
// display artifact, OriginalURL at the untouched upload; they are
// equal when no crop was applied.
type Screenshot struct {
	ID          uuid.UUID         `json:"id"`
	URL         string            `json:"url"`
	OriginalURL string            `json:"original_url"`
	CropDetails *imaging.CropRect `json:"crop_details"`
	UploadedBy  uuid.UUID         `json:"uploaded_by"`
	UploadDate  time.Time         `json:"upload_date"`
}

// Poi is a user-placed annotation with position and metadata.
type Poi struct {
	ID          uuid.UUID    `json:"id"`
	MapType     MapType      `json:"map_type"`
	GridCell    string       `json:"grid_cell,omitempty"` // deep desert only, "A1".."I9"
	Position    coord.Pixel  `json:"position"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	TypeID      uuid.UUID    `json:"poi_type_id"`
	Privacy     Privacy      `json:"privacy_level"`
	Screenshots []Screenshot `json:"screenshots"`
	SharedWith  []uuid.UUID  `json:"shared_with,omitempty"`
	CreatedBy   uuid.UUID    `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrBadMapType     = errors.New("unknown map type")
	ErrBadPrivacy     = errors.New("unknown privacy level")
	ErrBadGridCell    = errors.New("grid cell must match A1-I9")
	ErrBadCoordinate  = errors.New("coordinate outside map bounds")
	ErrTooManyShots   = fmt.Errorf("at most %d screenshots per POI", MaxScreenshots)
	ErrSharesMismatch = errors.New("share list requires shared privacy level")
)

// Validate checks the POI's invariants before persistence.
func (p *Poi) Validate() error {
	if p.Title == "" {
		return ErrTitleRequired
	}
	if !p.MapType.Valid() {
		return ErrBadMapType
	}
	if !p.Privacy.Valid() {
		return ErrBadPrivacy
	}
	if p.MapType == MapDeepDesert {
		if _, ok := coord.ParseCell(p.GridCell); !ok {
			return ErrBadGridCell
		}
	}
	if !coord.Validate(p.Position, p.MapType.Size()) {
		return ErrBadCoordinate
	}
	if len(p.Screenshots) > MaxScreenshots {
		return ErrTooManyShots
	}
	if len(p.SharedWith) > 0 && p.Privacy != PrivacyShared {
		return ErrSharesMismatch
	}
	return nil
}

// VisibleTo reports whether the POI may be shown to the given user.
func (p *Poi) VisibleTo(userID uuid.UUID) bool {
	switch p.Privacy {
	case PrivacyGlobal:
		return true
	case PrivacyPrivate:
		return p.CreatedBy == userID
	case PrivacyShared:
		if p.CreatedBy == userID {
			return true
		}
		for _, id := range p.SharedWith {
			if id == userID {
				return true
			}
		}
	}
	return false
}

// EntityLink attaches a POI to an external item or schematic.
type EntityLink struct {
	PoiID      uuid.UUID `json:"poi_id"`
	EntityID   uuid.UUID `json:"entity_id"`
	EntityType string    `json:"entity_type"` // "item" or "schematic"
	CreatedAt  time.Time `json:"created_at"`
}

// GridSquare is one Deep Desert cell with its exploration screenshot.
type GridSquare struct {
	Coordinate string      `json:"coordinate"` // "A1".."I9"
	Screenshot *Screenshot `json:"screenshot,omitempty"`
	IsExplored bool        `json:"is_explored"`
}
