package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/csd-transitions/internal/detector"
	"github.com/ironsheep/csd-transitions/internal/synth"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScan_DiagonalLine(t *testing.T) {
	d := synth.Diagonal(30, 101, 30)
	s := New(detector.DefaultConfig(), WithLogger(quietLogger()))

	mask, err := s.Scan(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, 30, mask.Rows)
	assert.Equal(t, 101, mask.Cols)
	for r := 0; r < 30; r++ {
		assert.Truef(t, mask.At(r, 30+r), "row %d: no transition at column %d", r, 30+r)
		assert.Equalf(t, detector.Rising, mask.Directions[r][30+r], "row %d direction", r)
		for c, ok := range mask.Bits[r] {
			if ok && (c < 30+r || c > 30+r+8) {
				t.Errorf("row %d: unexpected transition at column %d", r, c)
			}
		}
	}
	assert.GreaterOrEqual(t, mask.Rising, 30)
}

func TestScan_MatchesPerRowDetection(t *testing.T) {
	d := synth.Diagonal(24, 90, 20)
	cfg := detector.DefaultConfig()

	cal, err := detector.CalibrateDiagram(d, cfg)
	require.NoError(t, err)

	want := make([][]bool, d.Rows())
	for r := range want {
		res, err := detector.Detect(d.Row(r), cfg, cal)
		require.NoError(t, err)
		want[r] = res.Transitions
	}

	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s := New(cfg,
			WithLogger(quietLogger()),
			WithWorkers(int(seed)),
			WithRowOrder(func(rows int) []int { return rng.Perm(rows) }),
		)
		mask, err := s.Scan(context.Background(), d)
		require.NoError(t, err)
		if diff := cmp.Diff(want, mask.Bits); diff != "" {
			t.Errorf("seed %d: mask mismatch (-want +got):\n%s", seed, diff)
		}
	}
}

func TestScan_ShapeMatchesInput(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
	}{
		{"single row", 1, 40},
		{"narrow", 10, 4},
		{"wide", 3, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := synth.Diagonal(tt.rows, tt.cols, tt.cols/2)
			mask, err := New(detector.DefaultConfig(), WithLogger(quietLogger())).Scan(context.Background(), d)
			require.NoError(t, err)
			require.Len(t, mask.Bits, tt.rows)
			for r, row := range mask.Bits {
				assert.Lenf(t, row, tt.cols, "row %d", r)
				for c := 0; c < detector.LeadIn && c < tt.cols; c++ {
					assert.Falsef(t, row[c], "row %d col %d inside lead-in", r, c)
				}
			}
		})
	}
}

func TestScan_RowErrorNamesRow(t *testing.T) {
	d := synth.Diagonal(10, 60, 20)
	d.Values[7][45] = math.NaN()

	mask, err := New(detector.DefaultConfig(), WithLogger(quietLogger())).Scan(context.Background(), d)
	require.Error(t, err)
	assert.Nil(t, mask)
	assert.True(t, errors.Is(err, detector.ErrNonFiniteSample))
	assert.Contains(t, err.Error(), "row 7")
}

func TestScan_CalibrationErrors(t *testing.T) {
	tests := []struct {
		name    string
		diagram *trace.Diagram
		wantErr error
	}{
		{"no rows", &trace.Diagram{Name: "empty", X: synth.Axis(10)}, detector.ErrEmptyCalibrationWindow},
		{"too narrow", &trace.Diagram{Name: "narrow", X: synth.Axis(3), Values: [][]float64{{1, 2, 3}}}, detector.ErrEmptyCalibrationWindow},
		{"ragged", &trace.Diagram{Name: "ragged", X: synth.Axis(4), Values: [][]float64{{1, 2, 3, 4}, {1, 2}}}, detector.ErrInvalidTraceLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(detector.DefaultConfig(), WithLogger(quietLogger())).Scan(context.Background(), tt.diagram)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(detector.DefaultConfig(), WithLogger(quietLogger())).Scan(ctx, synth.Diagonal(8, 60, 20))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(detector.DefaultConfig(), WithLogger(quietLogger()), WithMetrics(m))

	mask, err := s.Scan(context.Background(), synth.Diagonal(12, 80, 20))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans.WithLabelValues("ok")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.RowsScanned))
	assert.Equal(t, float64(mask.Rising), testutil.ToFloat64(m.Transitions.WithLabelValues("rising")))
	assert.Equal(t, float64(mask.Falling), testutil.ToFloat64(m.Transitions.WithLabelValues("falling")))

	_, err = s.Scan(context.Background(), &trace.Diagram{Name: "empty"})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans.WithLabelValues("error")))
}

func TestScan_LogsSummary(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	_, err := New(detector.DefaultConfig(), WithLogger(l)).Scan(context.Background(), synth.Diagonal(4, 60, 20))
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), `"diagram":"diagonal"`), buf.String())
	assert.Contains(t, buf.String(), "scanned diagram")
}
