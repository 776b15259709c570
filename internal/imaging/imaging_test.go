package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/csd-transitions/internal/detector"
	"github.com/ironsheep/csd-transitions/internal/synth"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

// cellPixel returns the centre pixel of cell (row, col) after orientation
func cellPixel(rows, row, col, scale int) (int, int) {
	return col*scale + scale/2, (rows-1-row)*scale + scale/2
}

func isWhite(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func isBlack(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r == 0 && g == 0 && b == 0
}

func testMask() [][]bool {
	bits := make([][]bool, 4)
	for r := range bits {
		bits[r] = make([]bool, 6)
	}
	bits[0][1] = true
	bits[3][4] = true
	return bits
}

func TestMaskImage(t *testing.T) {
	tests := []struct {
		name  string
		scale int
	}{
		{"unscaled", 1},
		{"scaled", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := MaskImage(testMask(), tt.scale, 0)
			if err != nil {
				t.Fatalf("MaskImage failed: %v", err)
			}
			if img.Bounds().Dx() != 6*tt.scale || img.Bounds().Dy() != 4*tt.scale {
				t.Fatalf("size = %v, want %dx%d", img.Bounds(), 6*tt.scale, 4*tt.scale)
			}
			if x, y := cellPixel(4, 0, 1, tt.scale); !isWhite(img, x, y) {
				t.Errorf("cell (0,1) not white at pixel (%d,%d)", x, y)
			}
			if x, y := cellPixel(4, 3, 4, tt.scale); !isWhite(img, x, y) {
				t.Errorf("cell (3,4) not white at pixel (%d,%d)", x, y)
			}
			if x, y := cellPixel(4, 0, 0, tt.scale); !isBlack(img, x, y) {
				t.Errorf("cell (0,0) not black at pixel (%d,%d)", x, y)
			}
		})
	}
}

func TestMaskImage_Thicken(t *testing.T) {
	count := func(img image.Image) int {
		n := 0
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if !isBlack(img, x, y) {
					n++
				}
			}
		}
		return n
	}

	plain, err := MaskImage(testMask(), 1, 0)
	if err != nil {
		t.Fatalf("MaskImage failed: %v", err)
	}
	thick, err := MaskImage(testMask(), 1, 1)
	if err != nil {
		t.Fatalf("MaskImage failed: %v", err)
	}
	if count(thick) <= count(plain) {
		t.Errorf("dilated mask has %d lit pixels, plain has %d", count(thick), count(plain))
	}
}

func TestMaskImage_Errors(t *testing.T) {
	if _, err := MaskImage(nil, 1, 0); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("nil mask: err = %v, want ErrEmptyImage", err)
	}
	if _, err := MaskImage([][]bool{{true}, {true, false}}, 1, 0); err == nil {
		t.Error("ragged mask: expected error")
	}
}

func TestHeatmap_Extremes(t *testing.T) {
	d := &trace.Diagram{
		Name:   "ramp",
		X:      synth.Axis(3),
		Values: [][]float64{{0, 5, 10}, {10, 5, 0}},
	}
	img, err := Heatmap(d, 1)
	if err != nil {
		t.Fatalf("Heatmap failed: %v", err)
	}

	low := DefaultPalette[0]
	high := DefaultPalette[len(DefaultPalette)-1]
	// row 0 is drawn at the bottom
	if got := img.NRGBAAt(0, 1); !sameColor(got, low) {
		t.Errorf("min cell = %v, want %v", got, low.Hex())
	}
	if got := img.NRGBAAt(2, 1); !sameColor(got, high) {
		t.Errorf("max cell = %v, want %v", got, high.Hex())
	}
	if got := img.NRGBAAt(0, 0); !sameColor(got, high) {
		t.Errorf("row 1 col 0 = %v, want %v", got, high.Hex())
	}
}

func TestHeatmap_ConstantAndEmpty(t *testing.T) {
	d := &trace.Diagram{X: synth.Axis(2), Values: [][]float64{{3, 3}}}
	if _, err := Heatmap(d, 2); err != nil {
		t.Errorf("constant diagram: %v", err)
	}
	if _, err := Heatmap(&trace.Diagram{}, 1); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty diagram: err = %v, want ErrEmptyImage", err)
	}
}

func TestPalette_At(t *testing.T) {
	p := MustPalette("#000000", "#ffffff")
	if got := p.At(-1).Hex(); got != "#000000" {
		t.Errorf("At(-1) = %s", got)
	}
	if got := p.At(2).Hex(); got != "#ffffff" {
		t.Errorf("At(2) = %s", got)
	}
	mid := p.At(0.5)
	if mid.R <= 0 || mid.R >= 1 {
		t.Errorf("At(0.5) = %s, want a grey", mid.Hex())
	}
}

func TestOverlay(t *testing.T) {
	d := synth.Diagonal(4, 6, 1)
	bits := testMask()

	img, err := Overlay(d, bits, 2, "#00ff00")
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	x, y := cellPixel(4, 3, 4, 2)
	if got := img.NRGBAAt(x, y); got.R != 0 || got.G != 255 || got.B != 0 {
		t.Errorf("marked cell = %v, want green", got)
	}

	if _, err := Overlay(d, bits[:2], 1, ""); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short mask: err = %v, want ErrShapeMismatch", err)
	}
	if _, err := Overlay(d, bits, 1, "green"); err == nil {
		t.Error("bad marker: expected error")
	}
}

func TestLinesImage(t *testing.T) {
	labels := [][]int{
		{0, 1, 0},
		{2, 0, 0},
	}
	img, err := LinesImage(labels, 1)
	if err != nil {
		t.Fatalf("LinesImage failed: %v", err)
	}
	if !isBlack(img, 0, 1) {
		t.Error("unlabelled cell not black")
	}
	if isBlack(img, 1, 1) || isBlack(img, 0, 0) {
		t.Error("labelled cell is black")
	}
	if img.NRGBAAt(1, 1) == img.NRGBAAt(0, 0) {
		t.Error("labels 1 and 2 share a colour")
	}
}

func TestEncode(t *testing.T) {
	img, err := MaskImage(testMask(), 3, 0)
	if err != nil {
		t.Fatalf("MaskImage failed: %v", err)
	}
	res, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if res.MimeType != "image/png" || res.Width != 18 || res.Height != 12 {
		t.Errorf("unexpected result header: %+v", res)
	}
	raw, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 18 {
		t.Errorf("decoded width = %d", decoded.Bounds().Dx())
	}
}

func TestSave(t *testing.T) {
	img, err := MaskImage(testMask(), 2, 0)
	if err != nil {
		t.Fatalf("MaskImage failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "mask.png")
	if err := Save(path, img); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("saved file is not a PNG: %v", err)
	}
	if cfg.Width != 12 || cfg.Height != 8 {
		t.Errorf("saved size = %dx%d, want 12x8", cfg.Width, cfg.Height)
	}
}

func TestPlotTrace(t *testing.T) {
	tr := synth.DefaultStep().Trace()
	res, err := detector.DetectTrace(tr, detector.DefaultConfig())
	if err != nil {
		t.Fatalf("DetectTrace failed: %v", err)
	}

	data, err := PlotTrace(tr, res, PlotOptions{Title: "step", Width: 640, Height: 320})
	if err != nil {
		t.Fatalf("PlotTrace failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("plot is not a PNG: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 320 {
		t.Errorf("plot size = %dx%d, want 640x320", cfg.Width, cfg.Height)
	}
}

func TestPlotTrace_Edges(t *testing.T) {
	if _, err := PlotTrace(synth.Constant(1, 0), nil, PlotOptions{}); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("single sample: err = %v, want ErrEmptyImage", err)
	}
	if _, err := PlotTrace(synth.Constant(20, 2), nil, PlotOptions{}); err != nil {
		t.Errorf("flat trace: %v", err)
	}
}

func sameColor(got interface{ RGBA() (r, g, b, a uint32) }, want interface{ RGBA() (r, g, b, a uint32) }) bool {
	r1, g1, b1, _ := got.RGBA()
	r2, g2, b2, _ := want.RGBA()
	return r1>>8 == r2>>8 && g1>>8 == g2>>8 && b1>>8 == b2>>8
}
