package detection

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Extraction defaults.
const (
	DefaultMinLength  = 5
	DefaultMinCluster = 2
	DefaultTolerance  = 1.5
	DefaultMaxGap     = 4.0
	DefaultMaxLines   = 64

	numAngles = 180
)

// ErrRaggedMask is returned when mask rows differ in length.
var ErrRaggedMask = errors.New("mask rows have unequal length")

// Extractor turns a transition mask into line segments.
type Extractor interface {
	Extract(mask [][]bool) (*LinesResult, error)
}

// Line is one extracted segment.
type Line struct {
	// ID is the segment label in LinesResult.Labels, starting at 1.
	ID int `json:"id"`

	// Start is the endpoint with the smaller row (then smaller column).
	Start Point `json:"start"`
	End   Point `json:"end"`

	Length       float64 `json:"length"`
	AngleDegrees float64 `json:"angle_degrees"`

	// Votes is the Hough accumulator count of the peak the segment came from.
	Votes int `json:"votes"`

	// Pixels is the number of mask pixels assigned to the segment.
	Pixels int `json:"pixels"`

	ThicknessApprox int `json:"thickness_approx"`
}

// LinesResult contains the extracted segments of one mask.
type LinesResult struct {
	Lines []Line `json:"lines"`
	Count int    `json:"count"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Clusters[i] holds the pixels of Lines[i].
	Clusters [][]Point `json:"-"`

	// Labels[y][x] is the ID of the segment owning the pixel, 0 if none.
	Labels [][]int `json:"-"`

	// Image[y][x] is 1 on segment pixels and 0 elsewhere.
	Image [][]uint8 `json:"-"`
}

// Mask returns the cleaned image as a boolean mask.
func (r *LinesResult) Mask() [][]bool {
	out := make([][]bool, len(r.Image))
	for y, row := range r.Image {
		out[y] = make([]bool, len(row))
		for x, v := range row {
			out[y][x] = v != 0
		}
	}
	return out
}

// Hough extracts segments with a (rho, theta) Hough transform.
type Hough struct {
	// MinLength is the minimum segment length and pixel count.
	MinLength int

	// MinCluster drops connected groups smaller than this before voting.
	MinCluster int

	// Tolerance is the maximum pixel distance from a peak line.
	Tolerance float64

	// MaxGap splits collinear pixels separated by more than this along the line.
	MaxGap float64

	// MaxLines caps the number of segments returned.
	MaxLines int
}

// NewHough returns an extractor with default settings and the given minimum
// segment length. Values below 2 select DefaultMinLength.
func NewHough(minLength int) *Hough {
	if minLength < 2 {
		minLength = DefaultMinLength
	}
	return &Hough{
		MinLength:  minLength,
		MinCluster: DefaultMinCluster,
		Tolerance:  DefaultTolerance,
		MaxGap:     DefaultMaxGap,
		MaxLines:   DefaultMaxLines,
	}
}

type peak struct {
	rho   int
	theta int
	votes int
}

// Extract implements Extractor.
func (h *Hough) Extract(mask [][]bool) (*LinesResult, error) {
	height := len(mask)
	width := 0
	if height > 0 {
		width = len(mask[0])
	}
	for y, row := range mask {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", y, len(row), width, ErrRaggedMask)
		}
	}

	res := &LinesResult{
		Lines:  make([]Line, 0),
		Width:  width,
		Height: height,
		Labels: make([][]int, height),
		Image:  make([][]uint8, height),
	}
	for y := 0; y < height; y++ {
		res.Labels[y] = make([]int, width)
		res.Image[y] = make([]uint8, width)
	}
	if width == 0 {
		return res, nil
	}

	points := make([]Point, 0)
	for _, c := range FindClusters(mask, h.MinCluster) {
		points = append(points, c.Points...)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Y != points[j].Y {
			return points[i].Y < points[j].Y
		}
		return points[i].X < points[j].X
	})

	cosT := make([]float64, numAngles)
	sinT := make([]float64, numAngles)
	for theta := 0; theta < numAngles; theta++ {
		angle := float64(theta) * math.Pi / 180.0
		cosT[theta] = math.Cos(angle)
		sinT[theta] = math.Sin(angle)
	}

	maxDist := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	accumulator := make([][]int, 2*maxDist+1)
	for i := range accumulator {
		accumulator[i] = make([]int, numAngles)
	}
	for _, p := range points {
		for theta := 0; theta < numAngles; theta++ {
			rho := float64(p.X)*cosT[theta] + float64(p.Y)*sinT[theta]
			accumulator[int(math.Round(rho))+maxDist][theta]++
		}
	}

	threshold := maxInt(h.MinLength/2, 2)
	peaks := make([]peak, 0)
	for rhoIdx := range accumulator {
		for theta := 0; theta < numAngles; theta++ {
			votes := accumulator[rhoIdx][theta]
			if votes < threshold || !isLocalMax(accumulator, rhoIdx, theta) {
				continue
			}
			peaks = append(peaks, peak{rho: rhoIdx - maxDist, theta: theta, votes: votes})
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	claimed := make([][]bool, height)
	for y := range claimed {
		claimed[y] = make([]bool, width)
	}

	for _, pk := range peaks {
		if len(res.Lines) >= h.MaxLines {
			break
		}
		c, s := cosT[pk.theta], sinT[pk.theta]
		rho := float64(pk.rho)

		near := make([]Point, 0)
		for _, p := range points {
			if claimed[p.Y][p.X] {
				continue
			}
			if math.Abs(float64(p.X)*c+float64(p.Y)*s-rho) < h.Tolerance {
				near = append(near, p)
			}
		}
		if len(near) < h.MinLength {
			continue
		}

		along := func(p Point) float64 { return -float64(p.X)*s + float64(p.Y)*c }
		sort.SliceStable(near, func(i, j int) bool {
			return along(near[i]) < along(near[j])
		})

		for _, run := range splitRuns(near, along, h.MaxGap) {
			if len(res.Lines) >= h.MaxLines {
				break
			}
			if len(run) < h.MinLength {
				continue
			}
			line := segment(run)
			if line.Length < float64(h.MinLength) {
				continue
			}
			line.ID = len(res.Lines) + 1
			line.Votes = pk.votes
			for _, p := range run {
				claimed[p.Y][p.X] = true
				res.Labels[p.Y][p.X] = line.ID
				res.Image[p.Y][p.X] = 1
			}
			res.Lines = append(res.Lines, line)
			res.Clusters = append(res.Clusters, run)
		}
	}

	res.Count = len(res.Lines)
	return res, nil
}

// isLocalMax reports whether no cell in the 5x5 neighbourhood (theta wraps)
// has strictly more votes.
func isLocalMax(acc [][]int, rhoIdx, theta int) bool {
	v := acc[rhoIdx][theta]
	for dr := -2; dr <= 2; dr++ {
		nr := rhoIdx + dr
		if nr < 0 || nr >= len(acc) {
			continue
		}
		for dt := -2; dt <= 2; dt++ {
			if dr == 0 && dt == 0 {
				continue
			}
			if acc[nr][(theta+dt+numAngles)%numAngles] > v {
				return false
			}
		}
	}
	return true
}

// splitRuns cuts points, sorted along the line, wherever consecutive points
// are more than maxGap apart.
func splitRuns(points []Point, along func(Point) float64, maxGap float64) [][]Point {
	runs := make([][]Point, 0, 1)
	start := 0
	for i := 1; i < len(points); i++ {
		if along(points[i])-along(points[i-1]) > maxGap {
			runs = append(runs, points[start:i])
			start = i
		}
	}
	return append(runs, points[start:])
}

// segment builds a line from run, sorted along its direction.
func segment(run []Point) Line {
	a, b := run[0], run[len(run)-1]
	if b.Y < a.Y || (b.Y == a.Y && b.X < a.X) {
		a, b = b, a
	}
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)

	return Line{
		Start:           a,
		End:             b,
		Length:          math.Round(length*10) / 10,
		AngleDegrees:    math.Round(math.Atan2(dy, dx)*180/math.Pi*10) / 10,
		Pixels:          len(run),
		ThicknessApprox: estimateThickness(len(run), a, b),
	}
}

// estimateThickness divides the pixel count by the number of pixel steps
// along the dominant axis.
func estimateThickness(pixels int, a, b Point) int {
	steps := maxInt(absInt(b.X-a.X), absInt(b.Y-a.Y)) + 1
	t := int(math.Round(float64(pixels) / float64(steps)))
	if t < 1 {
		return 1
	}
	return t
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
