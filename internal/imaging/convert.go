// Package imaging turns user uploads into web-friendly WebP artifacts:
// decode, optional crop, downscale to a preset ceiling, re-encode.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Preset names a conversion profile.
type Preset string

const (
	PresetHigh     Preset = "high"     // base maps, originals
	PresetStandard Preset = "standard" // POI display screenshots
	PresetIcon     Preset = "icon"     // type icons
)

// maxDimension returns the width/height ceiling for a preset.
// Aspect ratio is always preserved; images below the ceiling are
// left at their native size.
func (p Preset) maxDimension() int {
	switch p {
	case PresetHigh:
		return 2048
	case PresetIcon:
		return 512
	default:
		return 1920
	}
}

// Result describes one finished conversion.
type Result struct {
	Data          []byte
	Width, Height int
	OriginalSize  int
}

// Convert decodes src, applies the optional crop, downscales to the
// preset's ceiling, and re-encodes as WebP.
func Convert(src []byte, crop *CropRect, preset Preset) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if crop.Meaningful(b.Dx(), b.Dy()) {
		img, err = Crop(img, *crop)
		if err != nil {
			return nil, err
		}
	}

	img = scaleDown(img, preset.maxDimension())

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}

	return &Result{
		Data:         buf.Bytes(),
		Width:        img.Bounds().Dx(),
		Height:       img.Bounds().Dy(),
		OriginalSize: len(src),
	}, nil
}

// scaleDown resizes img so neither dimension exceeds max, preserving
// aspect ratio. Images already within the ceiling are returned as-is.
func scaleDown(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	scale := float64(max) / float64(w)
	if s := float64(max) / float64(h); s < scale {
		scale = s
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Dimensions reads the pixel size of an encoded image without
// decoding the full raster.
func Dimensions(src []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// BatchError collects per-file failures from a best-effort batch.
type BatchError struct {
	Failures map[string]error // file name -> cause
}

func (e *BatchError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	return fmt.Sprintf("convert failed for %s", strings.Join(names, ", "))
}

// ConvertAll converts a batch of named files with best-effort
// semantics: one file's failure never aborts its siblings. The
// returned map holds the successes; err is a *BatchError when any
// file failed.
func ConvertAll(files map[string][]byte, preset Preset) (map[string]*Result, error) {
	results := make(map[string]*Result, len(files))
	failures := make(map[string]error)
	for name, data := range files {
		res, err := Convert(data, nil, preset)
		if err != nil {
			failures[name] = err
			continue
		}
		results[name] = res
	}
	if len(failures) > 0 {
		return results, &BatchError{Failures: failures}
	}
	return results, nil
}

// WebPName swaps a filename's extension for .webp.
func WebPName(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name + ".webp"
}
