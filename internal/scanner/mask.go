package scanner

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/ironsheep/csd-transitions/internal/detector"
)

// TransitionSentinel marks a transition in LineInput. Line extractors treat
// any non-zero value as a candidate edge pixel.
const TransitionSentinel = -1.0

// Mask is the 2D transition mask of a diagram, same shape as its input.
type Mask struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// Bits[r][c] is true where a transition was confirmed.
	Bits [][]bool `json:"bits"`

	// Directions[r][c] is the confirmed direction, detector.None elsewhere.
	Directions [][]detector.Direction `json:"-"`

	Rising  int `json:"rising"`
	Falling int `json:"falling"`
}

// Count returns the number of transition pixels.
func (m *Mask) Count() int {
	return m.Rising + m.Falling
}

// At reports whether (row, col) is a transition.
func (m *Mask) At(row, col int) bool {
	return m.Bits[row][col]
}

// LineInput returns the mask in line extractor convention: TransitionSentinel
// for transitions and 0 elsewhere.
func (m *Mask) LineInput() [][]float64 {
	out := make([][]float64, m.Rows)
	for r, row := range m.Bits {
		out[r] = make([]float64, m.Cols)
		for c, ok := range row {
			if ok {
				out[r][c] = TransitionSentinel
			}
		}
	}
	return out
}

// Gray returns the mask as an 8-bit image, 255 for transitions. This is the
// sentinel wrapped to uint8, the binary image format of EDLines-style
// extractors. Pixel (c, r) is mask cell (r, c).
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for r, row := range m.Bits {
		for c, ok := range row {
			if ok {
				img.SetGray(c, r, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// WriteCSV writes the mask as rows of 0/1 values.
func (m *Mask) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	record := make([]string, m.Cols)
	for _, row := range m.Bits {
		for c, ok := range row {
			if ok {
				record[c] = "1"
			} else {
				record[c] = "0"
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write mask row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func newMask(rows, cols int) *Mask {
	m := &Mask{
		Rows:       rows,
		Cols:       cols,
		Bits:       make([][]bool, rows),
		Directions: make([][]detector.Direction, rows),
	}
	return m
}

func (m *Mask) setRow(r int, res *detector.Result) {
	m.Bits[r] = res.Transitions
	m.Directions[r] = res.Directions
	m.Rising += res.Rising
	m.Falling += res.Falling
}
