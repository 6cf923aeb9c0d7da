// Package spatial provides the nearest-neighbor structure the route
// matcher queries. The index is read-only once built and safe for
// concurrent queries.
package spatial

import "math"

// Point is one indexed coordinate in local planar meters, tagged with the
// index of the road segment it was densified from. Points only live for
// the index build and query phase; they are never persisted.
type Point struct {
	X, Y       float64
	SegmentIdx int
}

// Index answers radius queries over a fixed point set. A radius query must
// return exactly the set of indexed points whose planar Euclidean distance
// to the query point is at most the radius.
type Index interface {
	// Build constructs the index from points, replacing any prior contents.
	Build(points []Point)

	// Within returns the indices (into the built point set) of every point
	// within radius of (x, y).
	Within(x, y, radius float64) []int

	// Size returns the number of indexed points.
	Size() int
}

// GridIndex implements Index with a uniform cell grid. A query collects the
// cells overlapped by the bounding square of the query circle and filters
// candidates by exact distance, so lookups stay near O(points per cell)
// when the cell size is on the order of the query radius.
type GridIndex struct {
	points   []Point
	grid     map[gridKey][]int // maps grid cell to point indices
	cellSize float64           // cell edge length in meters
	minX     float64
	minY     float64
}

type gridKey struct {
	col int
	row int
}

// NewGridIndex creates a grid index with the given cell size in meters.
// Pick a cell size close to the expected query radius.
func NewGridIndex(cellSizeMeters float64) *GridIndex {
	if cellSizeMeters <= 0 {
		cellSizeMeters = 1.0
	}

	return &GridIndex{
		grid:     make(map[gridKey][]int),
		cellSize: cellSizeMeters,
	}
}

// Build constructs the grid from the given points.
func (g *GridIndex) Build(points []Point) {
	g.points = points
	g.grid = make(map[gridKey][]int)

	if len(points) == 0 {
		return
	}

	g.minX, g.minY = points[0].X, points[0].Y
	for _, pt := range points {
		if pt.X < g.minX {
			g.minX = pt.X
		}
		if pt.Y < g.minY {
			g.minY = pt.Y
		}
	}

	for idx, pt := range points {
		key := g.keyFor(pt.X, pt.Y)
		g.grid[key] = append(g.grid[key], idx)
	}
}

// Within returns the indices of all points within radius of (x, y).
func (g *GridIndex) Within(x, y, radius float64) []int {
	if len(g.points) == 0 || radius < 0 {
		return nil
	}

	minKey := g.keyFor(x-radius, y-radius)
	maxKey := g.keyFor(x+radius, y+radius)
	radiusSq := radius * radius

	var result []int
	for col := minKey.col; col <= maxKey.col; col++ {
		for row := minKey.row; row <= maxKey.row; row++ {
			for _, idx := range g.grid[gridKey{col: col, row: row}] {
				pt := g.points[idx]
				dx := pt.X - x
				dy := pt.Y - y
				if dx*dx+dy*dy <= radiusSq {
					result = append(result, idx)
				}
			}
		}
	}

	return result
}

// Size returns the number of indexed points.
func (g *GridIndex) Size() int {
	return len(g.points)
}

// PointAt returns the indexed point at idx, or nil when out of range.
func (g *GridIndex) PointAt(idx int) *Point {
	if idx < 0 || idx >= len(g.points) {
		return nil
	}

	return &g.points[idx]
}

func (g *GridIndex) keyFor(x, y float64) gridKey {
	return gridKey{
		col: int(math.Floor((x - g.minX) / g.cellSize)),
		row: int(math.Floor((y - g.minY) / g.cellSize)),
	}
}
