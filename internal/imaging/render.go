package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

var (
	// ErrEmptyImage is returned when there is nothing to render.
	ErrEmptyImage = errors.New("nothing to render")

	// ErrShapeMismatch is returned when an overlay does not match its diagram.
	ErrShapeMismatch = errors.New("mask shape does not match diagram")
)

// ImageResult contains a rendered image encoded as base64 PNG.
type ImageResult struct {
	// Width of the image in pixels.
	Width int `json:"width"`

	// Height of the image in pixels.
	Height int `json:"height"`

	// ImageBase64 is the PNG encoded as standard base64.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png".
	MimeType string `json:"mime_type"`
}

// Encode wraps img as a base64 PNG.
func Encode(img image.Image) (*ImageResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &ImageResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Save writes img to path as PNG.
func Save(path string, img image.Image) error {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// orient flips img so that row 0 is at the bottom and upscales every cell to
// a scale x scale block.
func orient(img image.Image, scale int) *image.NRGBA {
	out := imaging.FlipV(img)
	if scale > 1 {
		b := out.Bounds()
		out = imaging.Resize(out, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	}
	return out
}

// gridSize returns the column count of a rectangular grid, or an error.
func gridSize[T any](rows [][]T) (int, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, ErrEmptyImage
	}
	cols := len(rows[0])
	for r, row := range rows {
		if len(row) != cols {
			return 0, fmt.Errorf("row %d has %d cells, want %d", r, len(row), cols)
		}
	}
	return cols, nil
}
