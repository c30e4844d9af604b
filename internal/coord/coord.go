// Package coord converts between the fixed map pixel space, CSS
// percentage marker positions, and raw viewport coordinates under an
// active pan/zoom transform.
package coord

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Map pixel-space extents per map type.
const (
	// HaggaBasinSize is the virtual canvas size of the continuous map.
	HaggaBasinSize = 4000.0
	// GridCellSize is the virtual canvas size of a single Deep Desert
	// grid cell screenshot.
	GridCellSize = 2000.0
)

// Pixel is a coordinate in normalized map pixel space.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Marker is a derived CSS-relative position for absolute marker
// placement. Never persisted; recomputed from the Pixel on demand.
type Marker struct {
	LeftPct float64
	TopPct  float64
}

// Left returns the CSS left value, e.g. "12.5%".
func (m Marker) Left() string { return formatPct(m.LeftPct) }

// Top returns the CSS top value, e.g. "50%".
func (m Marker) Top() string { return formatPct(m.TopPct) }

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// Rect is the bounding rectangle of the rendered map element in
// client (viewport) pixels. Width and Height already reflect the
// current zoom, so no inverse transform is needed as long as the
// rectangle is read fresh on every interaction.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// MarkerPosition converts a pixel coordinate to a percentage position
// on a map of the given size. The domain is unrestricted; callers
// validate coordinates upstream.
func MarkerPosition(p Pixel, mapSize float64) Marker {
	return Marker{
		LeftPct: p.X / mapSize * 100,
		TopPct:  p.Y / mapSize * 100,
	}
}

// FromPointer converts a pointer event's client coordinates to a
// clamped pixel coordinate, given the live bounding rectangle of the
// transformed map element.
func FromPointer(clientX, clientY float64, bounds Rect, mapSize float64) Pixel {
	return Clamp(Pixel{
		X: math.Round((clientX - bounds.Left) / bounds.Width * mapSize),
		Y: math.Round((clientY - bounds.Top) / bounds.Height * mapSize),
	}, mapSize)
}

// Validate reports whether both components lie in [0, mapSize].
func Validate(p Pixel, mapSize float64) bool {
	return p.X >= 0 && p.X <= mapSize && p.Y >= 0 && p.Y <= mapSize
}

// Clamp limits both components to [0, mapSize].
func Clamp(p Pixel, mapSize float64) Pixel {
	return Pixel{
		X: math.Max(0, math.Min(mapSize, p.X)),
		Y: math.Max(0, math.Min(mapSize, p.Y)),
	}
}

// Distance is the Euclidean distance between two points in pixel space.
func Distance(a, b Pixel) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// WithinRadius reports whether point lies within radius of center.
func WithinRadius(center, point Pixel, radius float64) bool {
	return Distance(center, point) <= radius
}

// Format renders a coordinate for display, e.g. "2000, 1500".
func Format(p Pixel) string {
	return fmt.Sprintf("%d, %d", int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Parse is the inverse of Format. It returns ok=false on malformed
// input (wrong token count or non-numeric parts) and never panics.
func Parse(s string) (Pixel, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Pixel{}, false
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Pixel{}, false
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Pixel{}, false
	}
	return Pixel{X: x, Y: y}, true
}
