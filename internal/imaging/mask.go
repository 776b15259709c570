package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/csd-transitions/internal/trace"
)

// DefaultMarker is the overlay colour of transitions.
const DefaultMarker = "#ff2d2d"

// MaskImage renders a transition mask in white on black. A positive thicken
// dilates the transitions by that radius, in cells, before scaling.
func MaskImage(bits [][]bool, scale int, thicken float64) (*image.NRGBA, error) {
	cols, err := gridSize(bits)
	if err != nil {
		return nil, err
	}

	img := image.NewGray(image.Rect(0, 0, cols, len(bits)))
	for r, row := range bits {
		for c, ok := range row {
			if ok {
				img.SetGray(c, r, color.Gray{Y: 255})
			}
		}
	}
	if thicken > 0 {
		return orient(effect.Dilate(img, thicken), scale), nil
	}
	return orient(img, scale), nil
}

// Overlay renders the diagram heatmap with transition cells painted in
// marker, a hex colour; an empty marker selects DefaultMarker.
func Overlay(d *trace.Diagram, bits [][]bool, scale int, marker string) (*image.NRGBA, error) {
	cols, err := gridSize(d.Values)
	if err != nil {
		return nil, err
	}
	if _, err := gridSize(bits); err != nil {
		return nil, err
	}
	if len(bits) != len(d.Values) || len(bits[0]) != cols {
		return nil, ErrShapeMismatch
	}
	if marker == "" {
		marker = DefaultMarker
	}
	mc, err := colorful.Hex(marker)
	if err != nil {
		return nil, fmt.Errorf("marker %q: %w", marker, err)
	}

	img := heatmap(d.Values, cols, DefaultPalette)
	for r, row := range bits {
		for c, ok := range row {
			if ok {
				img.Set(c, r, mc)
			}
		}
	}
	return orient(img, scale), nil
}

// LinesImage renders a segment label image with one colour per label on
// black. Hues are spread by the golden angle so neighbouring labels differ.
func LinesImage(labels [][]int, scale int) (*image.NRGBA, error) {
	cols, err := gridSize(labels)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, cols, len(labels)))
	for r, row := range labels {
		for c, id := range row {
			if id > 0 {
				img.Set(c, r, LabelColor(id))
			} else {
				img.Set(c, r, color.Black)
			}
		}
	}
	return orient(img, scale), nil
}

// LabelColor returns the rendering colour of segment id.
func LabelColor(id int) colorful.Color {
	hue := math.Mod(float64(id-1)*137.508, 360)
	return colorful.Hsv(hue, 0.85, 0.95)
}
