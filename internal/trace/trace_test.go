package trace

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDifferentiate(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		x    []float64
		want []float64
	}{
		{"empty", nil, nil, nil},
		{"single", []float64{1}, []float64{0}, nil},
		{"linear", []float64{0, 2, 4, 6}, []float64{0, 1, 2, 3}, []float64{2, 2, 2}},
		{"non-uniform axis", []float64{0, 1, 3}, []float64{0, 0.5, 1.5}, []float64{2, 2}},
		{"negative slope", []float64{5, 4, 2}, []float64{1, 2, 3}, []float64{-1, -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Differentiate(tt.y, tt.x)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Differentiate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDifferentiate_DegenerateAxis(t *testing.T) {
	got := Differentiate([]float64{0, 1, 2}, []float64{0, 0, 1})
	if len(got) != 2 {
		t.Fatalf("length: got %d, want 2", len(got))
	}
	if !math.IsInf(got[0], 1) {
		t.Errorf("equal coordinates: got %v, want +Inf", got[0])
	}
	if got[1] != 1 {
		t.Errorf("second derivative: got %v, want 1", got[1])
	}
}

func TestTrace_Validate(t *testing.T) {
	ok := Trace{X: []float64{0, 1}, Y: []float64{3, 4}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate: unexpected error %v", err)
	}

	bad := Trace{X: []float64{0, 1, 2}, Y: []float64{3, 4}}
	if err := bad.Validate(); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Validate: got %v, want ErrShapeMismatch", err)
	}
}

func TestTrace_Window(t *testing.T) {
	tr := Trace{X: []float64{0, 1, 2, 3, 4}, Y: []float64{10, 11, 12, 13, 14}}

	w := tr.Window(1, 3)
	if diff := cmp.Diff([]float64{11, 12}, w.Y); diff != "" {
		t.Errorf("Window values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2}, w.X); diff != "" {
		t.Errorf("Window coordinates (-want +got):\n%s", diff)
	}

	if got := tr.Window(-3, 99).Len(); got != 5 {
		t.Errorf("clamped window length: got %d, want 5", got)
	}
	if got := tr.Window(4, 2).Len(); got != 0 {
		t.Errorf("inverted window length: got %d, want 0", got)
	}
}

func TestDiagram_Shape(t *testing.T) {
	d := &Diagram{
		X:      []float64{0, 1, 2},
		Values: [][]float64{{1, 2, 3}, {4, 5, 6}},
	}
	if d.Rows() != 2 || d.Cols() != 3 {
		t.Errorf("shape: got %dx%d, want 2x3", d.Rows(), d.Cols())
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	row := d.Row(1)
	if diff := cmp.Diff([]float64{4, 5, 6}, row.Y); diff != "" {
		t.Errorf("Row(1) (-want +got):\n%s", diff)
	}

	d.Values = append(d.Values, []float64{7})
	if err := d.Validate(); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Validate ragged: got %v, want ErrShapeMismatch", err)
	}
}
