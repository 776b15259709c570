package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/csd-transitions/internal/trace"
)

// Palette is a colour ramp. Colours between stops are blended in Luv space.
type Palette []colorful.Color

// DefaultPalette runs from dark purple (low) to yellow (high).
var DefaultPalette = MustPalette("#440154", "#3b528b", "#21918c", "#5ec962", "#fde725")

// MustPalette builds a palette from hex colours and panics on a malformed one.
func MustPalette(hex ...string) Palette {
	p := make(Palette, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(fmt.Sprintf("palette stop %d: %v", i, err))
		}
		p[i] = c
	}
	return p
}

// At returns the colour at position t in [0, 1]; t is clamped.
func (p Palette) At(t float64) colorful.Color {
	if len(p) == 1 || t <= 0 || math.IsNaN(t) {
		return p[0]
	}
	if t >= 1 {
		return p[len(p)-1]
	}
	pos := t * float64(len(p)-1)
	i := int(pos)
	return p[i].BlendLuv(p[i+1], pos-float64(i)).Clamped()
}

// Heatmap renders the diagram values through DefaultPalette, scaled between
// the smallest and largest finite value. Non-finite cells are black.
func Heatmap(d *trace.Diagram, scale int) (*image.NRGBA, error) {
	return HeatmapPalette(d, scale, DefaultPalette)
}

// HeatmapPalette is Heatmap with a custom palette.
func HeatmapPalette(d *trace.Diagram, scale int, p Palette) (*image.NRGBA, error) {
	cols, err := gridSize(d.Values)
	if err != nil {
		return nil, fmt.Errorf("diagram %q: %w", d.Name, err)
	}
	return orient(heatmap(d.Values, cols, p), scale), nil
}

func heatmap(values [][]float64, cols int, p Palette) *image.NRGBA {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range values {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo

	img := image.NewNRGBA(image.Rect(0, 0, cols, len(values)))
	for r, row := range values {
		for c, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Set(c, r, colorful.Color{})
				continue
			}
			t := 0.0
			if span > 0 {
				t = (v - lo) / span
			}
			img.Set(c, r, p.At(t))
		}
	}
	return img
}
