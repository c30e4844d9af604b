package coord

// Drag tracks a marker reposition gesture. The pointer-to-marker
// offset is recorded in client pixel space at grab time so the marker
// stays anchored to the initial grab point even if the zoom level
// changes mid-drag.
type Drag struct {
	mapSize float64
	offsetX float64 // pointer minus marker center, client px
	offsetY float64
	last    Pixel
	active  bool
}

// Grab starts a drag on a marker currently at markerPos. The bounds
// must be the live bounding rectangle of the map element at grab time.
func Grab(markerPos Pixel, clientX, clientY float64, bounds Rect, mapSize float64) *Drag {
	m := MarkerPosition(markerPos, mapSize)
	markerClientX := bounds.Left + m.LeftPct/100*bounds.Width
	markerClientY := bounds.Top + m.TopPct/100*bounds.Height
	return &Drag{
		mapSize: mapSize,
		offsetX: clientX - markerClientX,
		offsetY: clientY - markerClientY,
		last:    markerPos,
		active:  true,
	}
}

// Move recomputes the marker's intended coordinate from the current
// pointer position. Bounds must be re-read on every move; they carry
// the current zoom and pan.
func (d *Drag) Move(clientX, clientY float64, bounds Rect) Pixel {
	if !d.active {
		return d.last
	}
	d.last = FromPointer(clientX-d.offsetX, clientY-d.offsetY, bounds, d.mapSize)
	return d.last
}

// Release ends the gesture and returns the coordinate to persist. If
// persistence fails the caller must discard this value and fall back
// to the last server-confirmed position.
func (d *Drag) Release() Pixel {
	d.active = false
	return d.last
}

// Active reports whether the gesture is still in progress.
func (d *Drag) Active() bool { return d.active }
