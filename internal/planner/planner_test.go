package planner

import (
	"math"
	"testing"
)

func TestFindPathAroundObstacle(t *testing.T) {
	// Boundary scenario E (spec.md §8): single obstacle at origin,
	// half-extents (0.5, 0.5), resolution 0.25, robot radius 0.3.
	p := New(0.25, 0.3, Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5}, []Obstacle{
		{CX: 0, CY: 0, HX: 0.5, HY: 0.5},
	})

	path := p.FindPath(Point{X: -2, Y: 0}, Point{X: 2, Y: 0})
	if len(path) == 0 {
		t.Fatal("expected a non-empty path around the obstacle")
	}

	inflatedHX := 0.5 + 0.3
	inflatedHY := 0.5 + 0.3
	for _, pt := range path {
		if math.Abs(pt.X) < inflatedHX && math.Abs(pt.Y) < inflatedHY {
			t.Errorf("path point (%v,%v) lies inside the inflated obstacle", pt.X, pt.Y)
		}
	}
}

func TestFindPathNoCollisionAlongSegments(t *testing.T) {
	// Invariant 5 (spec.md §8): no returned path's Bresenham segments
	// traverse an occupied cell.
	p := New(0.5, 0.2, Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5}, []Obstacle{
		{CX: 1, CY: 1, HX: 1, HY: 1},
	})

	path := p.FindPath(Point{X: -3, Y: -3}, Point{X: 3, Y: 3})
	if len(path) == 0 {
		t.Fatal("expected a path")
	}

	for i := 0; i < len(path)-1; i++ {
		a := p.toCell(path[i])
		b := p.toCell(path[i+1])
		if !bresenhamClear(p.grid, a, b) {
			t.Errorf("segment %d->%d crosses an occupied cell", i, i+1)
		}
	}
}

func TestSmoothingNeverLengthensPath(t *testing.T) {
	// Invariant 6 (spec.md §8): smoothing does not lengthen the path.
	g := NewGrid(0.5, 0.1, Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10}, nil)
	raw := gridAStar(g, cell{0, 0}, cell{10, 10})
	if raw == nil {
		t.Fatal("expected a path on an empty grid")
	}
	smoothed := smoothPath(g, raw)

	if pathLength(raw) < pathLength(smoothed)-1e-9 {
		t.Errorf("smoothed path (%v) longer than raw path (%v)", pathLength(smoothed), pathLength(raw))
	}
}

func pathLength(path []cell) float64 {
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		dr := float64(path[i+1].r - path[i].r)
		dc := float64(path[i+1].c - path[i].c)
		total += math.Hypot(dr, dc)
	}
	return total
}

func TestFindPathNoPathReturnsEmpty(t *testing.T) {
	// A wall of obstacles with no gap between start and goal.
	var obstacles []Obstacle
	for y := -5.0; y <= 5.0; y += 0.2 {
		obstacles = append(obstacles, Obstacle{CX: 0, CY: y, HX: 0.1, HY: 0.1})
	}
	p := New(0.2, 0.05, Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5}, obstacles)

	path := p.FindPath(Point{X: -3, Y: 0}, Point{X: 3, Y: 0})
	if len(path) != 0 {
		t.Errorf("expected no path through a solid wall, got %d points", len(path))
	}
}
