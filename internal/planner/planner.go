package planner

// Point is a world-space (x, y) coordinate.
type Point struct {
	X, Y float64
}

// Planner computes collision-free paths over a shared, immutable grid
// (spec §4.1, §3 "PathPlanner is shared read-only and constructed once").
type Planner struct {
	grid *Grid
}

// New constructs a Planner, inflating obstacles by robotRadius onto a
// grid of the given resolution and bounds (spec §4.1 construction).
func New(resolution, robotRadius float64, bounds Bounds, obstacles []Obstacle) *Planner {
	return &Planner{grid: NewGrid(resolution, robotRadius, bounds, obstacles)}
}

// nearestFreeSearchRadius bounds the BFS substitution search (spec §4.1
// step 1: "within radius 20 cells").
const nearestFreeSearchRadius = 20

// nearestFree runs a bounded BFS from start looking for the nearest free
// cell, returning ok=false if none is found within the radius.
func nearestFree(g *Grid, start cell) (cell, bool) {
	if g.Free(start.r, start.c) {
		return start, true
	}

	visited := map[cell]bool{start: true}
	queue := []cell{start}
	steps := 0

	for len(queue) > 0 && steps < nearestFreeSearchRadius*nearestFreeSearchRadius*8 {
		cur := queue[0]
		queue = queue[1:]

		for _, off := range neighborOffsets {
			next := cell{cur.r + off[0], cur.c + off[1]}
			if visited[next] {
				continue
			}
			if iabs(next.r-start.r) > nearestFreeSearchRadius || iabs(next.c-start.c) > nearestFreeSearchRadius {
				continue
			}
			visited[next] = true
			if g.Free(next.r, next.c) {
				return next, true
			}
			queue = append(queue, next)
			steps++
		}
	}

	return cell{}, false
}

// FindPath computes a collision-free path from start to goal (spec §4.1
// find_path). Returns an empty slice if no path is found; the caller
// treats that as "fall back to direct target" (spec §7).
func (p *Planner) FindPath(start, goal Point) []Point {
	startCell := p.toCell(start)
	goalCell := p.toCell(goal)

	freeStart, ok := nearestFree(p.grid, startCell)
	if !ok {
		return nil
	}
	freeGoal, ok := nearestFree(p.grid, goalCell)
	if !ok {
		return nil
	}

	raw := gridAStar(p.grid, freeStart, freeGoal)
	if raw == nil {
		return nil
	}

	smoothed := smoothPath(p.grid, raw)

	out := make([]Point, len(smoothed))
	for i, c := range smoothed {
		x, y := p.grid.CellCenter(c.r, c.c)
		out[i] = Point{X: x, Y: y}
	}

	// Replace endpoints with the literal requested coordinates iff those
	// exact coordinates lie in free cells (spec §4.1 step 5).
	if len(out) > 0 {
		if p.grid.Free(startCell.r, startCell.c) {
			out[0] = start
		}
		if p.grid.Free(goalCell.r, goalCell.c) {
			out[len(out)-1] = goal
		}
	}

	return out
}

func (p *Planner) toCell(pt Point) cell {
	r, c := p.grid.WorldToCell(pt.X, pt.Y)
	return cell{r: r, c: c}
}

// Free reports whether a world point lies in a free grid cell. Exposed so
// callers (e.g. Autopilot) can sanity-check a landmark before planning.
func (p *Planner) Free(pt Point) bool {
	r, c := p.grid.WorldToCell(pt.X, pt.Y)
	return p.grid.Free(r, c)
}
