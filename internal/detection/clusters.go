package detection

import "sort"

// Point is a mask cell in pixel coordinates: X is the column, Y the row.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds is an inclusive bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Cluster is a set of 8-connected mask pixels.
type Cluster struct {
	Points []Point `json:"points"`
	Bounds Bounds  `json:"bounds"`
}

// Size returns the number of pixels in the cluster.
func (c Cluster) Size() int {
	return len(c.Points)
}

// FindClusters groups the set pixels of mask into 8-connected clusters and
// returns those with at least minSize pixels, largest first. Pixels within a
// cluster are in discovery order.
func FindClusters(mask [][]bool, minSize int) []Cluster {
	height := len(mask)
	if height == 0 {
		return nil
	}
	width := len(mask[0])

	visited := make([][]bool, height)
	for y := range visited {
		visited[y] = make([]bool, width)
	}

	clusters := make([]Cluster, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y][x] || visited[y][x] {
				continue
			}
			points := make([]Point, 0)
			floodFill(mask, visited, x, y, width, height, &points)
			if len(points) >= minSize {
				clusters = append(clusters, Cluster{Points: points, Bounds: boundsOf(points)})
			}
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].Points) > len(clusters[j].Points)
	})
	return clusters
}

// floodFill collects the 8-connected component containing (startX, startY).
//
// Stack based, so long transition lines do not grow the goroutine stack.
func floodFill(mask, visited [][]bool, startX, startY, width, height int, points *[]Point) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !mask[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*points = append(*points, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

func boundsOf(points []Point) Bounds {
	b := Bounds{X1: points[0].X, Y1: points[0].Y, X2: points[0].X, Y2: points[0].Y}
	for _, p := range points[1:] {
		b.X1 = minInt(b.X1, p.X)
		b.Y1 = minInt(b.Y1, p.Y)
		b.X2 = maxInt(b.X2, p.X)
		b.Y2 = maxInt(b.Y2, p.Y)
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
