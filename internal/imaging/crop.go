package imaging

import (
	"fmt"
	"image"
)

// CropRect is a crop rectangle in source-image pixel space. A nil
// *CropRect means "use the full, uncropped image".
type CropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Bounds returns the rectangle as an image.Rectangle.
func (c CropRect) Bounds() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height)
}

// Meaningful reports whether applying the rect actually changes the
// image: degenerate rects and rects covering the whole source are not
// meaningful crops.
func (c *CropRect) Meaningful(srcWidth, srcHeight int) bool {
	if c == nil {
		return false
	}
	if c.Width <= 0 || c.Height <= 0 {
		return false
	}
	if c.X == 0 && c.Y == 0 && c.Width >= srcWidth && c.Height >= srcHeight {
		return false
	}
	return true
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop returns the portion of src covered by rect. The rect must lie
// within the source bounds.
func Crop(src image.Image, rect CropRect) (image.Image, error) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return nil, fmt.Errorf("crop: empty rectangle %dx%d", rect.Width, rect.Height)
	}
	b := src.Bounds()
	r := rect.Bounds().Add(b.Min)
	if !r.In(b) {
		return nil, fmt.Errorf("crop: rectangle %v outside source bounds %v", rect.Bounds(), b.Size())
	}
	if si, ok := src.(subImager); ok {
		return si.SubImage(r), nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Width, rect.Height))
	for y := 0; y < rect.Height; y++ {
		for x := 0; x < rect.Width; x++ {
			dst.Set(x, y, src.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return dst, nil
}
