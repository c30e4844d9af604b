package poi

import (
	"time"

	"github.com/google/uuid"
)

// IconKind discriminates how a POI type's icon is rendered. The kind
// is fixed at data-entry time instead of sniffed from the value on
// every render.
type IconKind string

const (
	IconURL   IconKind = "url"   // value is an image URL
	IconGlyph IconKind = "glyph" // value is an emoji or text glyph
)

// IconRef is a tagged icon reference.
type IconRef struct {
	Kind  IconKind `json:"kind"`
	Value string   `json:"value"`
}

// PoiType is a category of POIs sharing an icon and color.
type PoiType struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Icon               IconRef   `json:"icon"`
	Color              string    `json:"color"`
	Category           string    `json:"category"`
	DefaultDescription string    `json:"default_description,omitempty"`
}

// BaseMap is a static background raster for the continuous map. At
// most one base map is active at a time.
type BaseMap struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Overlay is an additional raster layered over the base map.
type Overlay struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url"`
	Opacity      float64   `json:"opacity"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// MapSettings is the display configuration broadcast to all open map
// views when changed.
type MapSettings struct {
	IconBaseSize         int      `json:"iconBaseSize"`
	IconMinSize          int      `json:"iconMinSize"`
	IconMaxSize          int      `json:"iconMaxSize"`
	ShowTooltips         bool     `json:"showTooltips"`
	EnablePositionChange bool     `json:"enablePositionChange"`
	DefaultVisibleTypes  []string `json:"defaultVisibleTypes"`
	ShowSharedIndicators bool     `json:"showSharedIndicators"`
}

// DefaultMapSettings are used when no stored configuration exists.
func DefaultMapSettings() MapSettings {
	return MapSettings{
		IconBaseSize:         64,
		IconMinSize:          64,
		IconMaxSize:          128,
		ShowTooltips:         true,
		EnablePositionChange: true,
		DefaultVisibleTypes:  []string{},
		ShowSharedIndicators: true,
	}
}
