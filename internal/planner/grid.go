// Package planner computes collision-free paths between world points on
// a static, inflated occupancy grid (spec §4.1).
package planner

import "math"

// Obstacle is an axis-aligned rectangle obstacle given by its center and
// half-extents, before robot-radius inflation (spec §3 OccupancyGrid).
type Obstacle struct {
	CX, CY float64
	HX, HY float64
}

// Bounds is the world-aligned extent the grid covers.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// Grid is an immutable, rectangular occupancy matrix. Cell (r, c) is
// occupied iff any inflated obstacle rectangle covers its center (spec
// §3 OccupancyGrid invariant: immutable after construction).
type Grid struct {
	res       float64
	bounds    Bounds
	rows      int
	cols      int
	occupied  []bool // row-major, len == rows*cols
}

// NewGrid builds an immutable occupancy grid by inflating each obstacle's
// half-extents by robotRadius and marking every cell whose center lies
// within the inflated AABB (spec §4.1 construction).
func NewGrid(res, robotRadius float64, bounds Bounds, obstacles []Obstacle) *Grid {
	cols := int(math.Ceil((bounds.MaxX-bounds.MinX)/res))
	rows := int(math.Ceil((bounds.MaxY-bounds.MinY)/res))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	g := &Grid{
		res:      res,
		bounds:   bounds,
		rows:     rows,
		cols:     cols,
		occupied: make([]bool, rows*cols),
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cx, cy := g.CellCenter(r, c)
			for _, ob := range obstacles {
				hx := ob.HX + robotRadius
				hy := ob.HY + robotRadius
				if math.Abs(cx-ob.CX) <= hx && math.Abs(cy-ob.CY) <= hy {
					g.occupied[r*cols+c] = true
					break
				}
			}
		}
	}

	return g
}

// Rows and Cols report the grid dimensions.
func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// Resolution returns the cell size in world units.
func (g *Grid) Resolution() float64 { return g.res }

// InBounds reports whether (r, c) is within the grid.
func (g *Grid) InBounds(r, c int) bool {
	return r >= 0 && r < g.rows && c >= 0 && c < g.cols
}

// Occupied reports whether cell (r, c) is occupied. Out-of-bounds cells
// are treated as occupied.
func (g *Grid) Occupied(r, c int) bool {
	if !g.InBounds(r, c) {
		return true
	}
	return g.occupied[r*g.cols+c]
}

// CellCenter returns the world coordinate of cell (r, c)'s center.
func (g *Grid) CellCenter(r, c int) (x, y float64) {
	x = g.bounds.MinX + (float64(c)+0.5)*g.res
	y = g.bounds.MinY + (float64(r)+0.5)*g.res
	return
}

// WorldToCell maps a world point to its containing cell.
func (g *Grid) WorldToCell(x, y float64) (r, c int) {
	c = int((x - g.bounds.MinX) / g.res)
	r = int((y - g.bounds.MinY) / g.res)
	return
}

// Free reports whether (r, c) is in bounds and unoccupied.
func (g *Grid) Free(r, c int) bool {
	return g.InBounds(r, c) && !g.Occupied(r, c)
}
