package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/csd-transitions/internal/detector"
	"github.com/ironsheep/csd-transitions/internal/scanner"
	"github.com/ironsheep/csd-transitions/internal/synth"
)

// newMask returns an all-false mask of the given size
func newMask(width, height int) [][]bool {
	m := make([][]bool, height)
	for y := range m {
		m[y] = make([]bool, width)
	}
	return m
}

// diagonalMask sets (offset+r, r) for every row r
func diagonalMask(width, height, offset int) [][]bool {
	m := newMask(width, height)
	for y := 0; y < height; y++ {
		if x := offset + y; x < width {
			m[y][x] = true
		}
	}
	return m
}

func TestExtract_Diagonal(t *testing.T) {
	res, err := NewHough(5).Extract(diagonalMask(101, 30, 30))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("Count = %d, want 1: %+v", res.Count, res.Lines)
	}

	want := Line{
		ID:              1,
		Start:           Point{X: 30, Y: 0},
		End:             Point{X: 59, Y: 29},
		Length:          41.0,
		AngleDegrees:    45.0,
		Votes:           res.Lines[0].Votes,
		Pixels:          30,
		ThicknessApprox: 1,
	}
	if diff := cmp.Diff(want, res.Lines[0]); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
	if res.Lines[0].Votes < 30 {
		t.Errorf("Votes = %d, want >= 30", res.Lines[0].Votes)
	}
}

func TestExtract_CleanedImage(t *testing.T) {
	mask := diagonalMask(60, 20, 10)
	mask[3][50] = true // isolated speckle
	mask[15][2] = true

	res, err := NewHough(5).Extract(mask)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if res.Image[3][50] != 0 || res.Image[15][2] != 0 {
		t.Error("isolated pixels survived cleaning")
	}
	for y := 0; y < 20; y++ {
		if res.Image[y][10+y] != 1 {
			t.Errorf("line pixel (%d, %d) missing from cleaned image", 10+y, y)
		}
		if res.Labels[y][10+y] != 1 {
			t.Errorf("label at (%d, %d) = %d, want 1", 10+y, y, res.Labels[y][10+y])
		}
	}
	if diff := cmp.Diff(diagonalMask(60, 20, 10), res.Mask()); diff != "" {
		t.Errorf("cleaned mask mismatch (-want +got):\n%s", diff)
	}
	if len(res.Clusters) != 1 || len(res.Clusters[0]) != 20 {
		t.Errorf("clusters = %v, want one of 20 pixels", res.Clusters)
	}
}

func TestExtract_SplitsCollinearGap(t *testing.T) {
	mask := newMask(40, 10)
	for x := 0; x < 10; x++ {
		mask[5][x] = true
	}
	for x := 20; x < 30; x++ {
		mask[5][x] = true
	}

	res, err := NewHough(5).Extract(mask)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("Count = %d, want 2: %+v", res.Count, res.Lines)
	}

	got := []Point{res.Lines[0].Start, res.Lines[0].End, res.Lines[1].Start, res.Lines[1].End}
	want := []Point{{X: 20, Y: 5}, {X: 29, Y: 5}, {X: 0, Y: 5}, {X: 9, Y: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}
	for _, l := range res.Lines {
		if l.AngleDegrees != 0 {
			t.Errorf("line %d angle = %v, want 0", l.ID, l.AngleDegrees)
		}
		if l.Length != 9 {
			t.Errorf("line %d length = %v, want 9", l.ID, l.Length)
		}
	}
}

func TestExtract_ThickVertical(t *testing.T) {
	mask := newMask(30, 20)
	for y := 0; y < 20; y++ {
		mask[y][10] = true
		mask[y][11] = true
	}

	res, err := NewHough(5).Extract(mask)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("Count = %d, want 1: %+v", res.Count, res.Lines)
	}
	l := res.Lines[0]
	if l.Pixels != 40 {
		t.Errorf("Pixels = %d, want 40", l.Pixels)
	}
	if l.ThicknessApprox != 2 {
		t.Errorf("ThicknessApprox = %d, want 2", l.ThicknessApprox)
	}
	if l.AngleDegrees < 85 || l.AngleDegrees > 95 {
		t.Errorf("AngleDegrees = %v, want about 90", l.AngleDegrees)
	}
}

func TestExtract_MinLength(t *testing.T) {
	tests := []struct {
		name      string
		minLength int
		wantCount int
	}{
		{"short segment kept", 5, 1},
		{"short segment rejected", 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := diagonalMask(30, 8, 2)
			res, err := NewHough(tt.minLength).Extract(mask)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if res.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", res.Count, tt.wantCount)
			}
		})
	}
}

func TestExtract_Empty(t *testing.T) {
	for _, mask := range [][][]bool{nil, newMask(0, 3), newMask(10, 10)} {
		res, err := NewHough(5).Extract(mask)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if res.Count != 0 || len(res.Lines) != 0 {
			t.Errorf("expected no lines, got %+v", res.Lines)
		}
		if len(res.Image) != len(mask) {
			t.Errorf("image has %d rows, want %d", len(res.Image), len(mask))
		}
	}
}

func TestExtract_Ragged(t *testing.T) {
	mask := [][]bool{make([]bool, 5), make([]bool, 4)}
	_, err := NewHough(5).Extract(mask)
	if !errors.Is(err, ErrRaggedMask) {
		t.Errorf("err = %v, want ErrRaggedMask", err)
	}
}

func TestExtract_ScannedDiagonal(t *testing.T) {
	mask, err := scanner.New(detector.DefaultConfig()).Scan(context.Background(), synth.Diagonal(30, 101, 30))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	var ex Extractor = NewHough(5)
	res, err := ex.Extract(mask.Bits)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Count < 1 {
		t.Fatal("no line found in scanned diagonal")
	}
	l := res.Lines[0]
	if l.AngleDegrees < 40 || l.AngleDegrees > 50 {
		t.Errorf("AngleDegrees = %v, want about 45", l.AngleDegrees)
	}
	if l.Pixels < 25 || l.Length < 35 {
		t.Errorf("line too short: %+v", l)
	}
}
