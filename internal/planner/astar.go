package planner

import (
	"container/heap"
	"math"
)

// cell is a grid coordinate.
type cell struct {
	r, c int
}

// node is one A* search node, grounded on the teacher's astarNode/
// astarHeap (internal/algo/astar.go): a container/heap-backed priority
// queue with an explicit heap index and an insertion counter used to
// break ties deterministically.
type node struct {
	pos     cell
	g       float64
	f       float64
	parent  *node
	seq     int // insertion order, for deterministic tie-breaking
	index   int // heap.Interface bookkeeping
}

type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *nodeHeap) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

const sqrt2 = math.Sqrt2

// octile is the admissible, consistent heuristic for 8-connected grids
// with cardinal cost 1 and diagonal cost sqrt(2) (spec §4.1 step 2).
func octile(a, b cell) float64 {
	dr := math.Abs(float64(a.r - b.r))
	dc := math.Abs(float64(a.c - b.c))
	if dr < dc {
		dr, dc = dc, dr
	}
	return dr + (sqrt2-1)*dc
}

var neighborOffsets = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1}, // cardinal
	{-1, -1}, {-1, 1}, {1, -1}, {1, 1}, // diagonal
}

// gridAStar runs 8-connected A* from start to goal on g, forbidding
// diagonal corner-cutting (spec §4.1 steps 2-3). Returns nil if no path
// exists. Both start and goal must already be free cells; callers
// substitute the nearest free cell before calling (see Planner.FindPath).
func gridAStar(g *Grid, start, goal cell) []cell {
	if !g.Free(start.r, start.c) || !g.Free(goal.r, goal.c) {
		return nil
	}

	open := &nodeHeap{}
	heap.Init(open)

	startNode := &node{pos: start, g: 0, f: octile(start, goal)}
	heap.Push(open, startNode)

	bestG := map[cell]float64{start: 0}
	closed := map[cell]bool{}
	seq := 1

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)

		if closed[cur.pos] {
			continue
		}
		closed[cur.pos] = true

		if cur.pos == goal {
			return reconstruct(cur)
		}

		for _, off := range neighborOffsets {
			nr, nc := cur.pos.r+off[0], cur.pos.c+off[1]
			next := cell{nr, nc}
			if !g.Free(nr, nc) || closed[next] {
				continue
			}

			diagonal := off[0] != 0 && off[1] != 0
			stepCost := 1.0
			if diagonal {
				stepCost = sqrt2
				// Forbid cutting the corner: both adjacent cardinal
				// cells relative to the move must not both be occupied
				// (spec §4.1 step 3).
				if !g.Free(cur.pos.r, nc) && !g.Free(nr, cur.pos.c) {
					continue
				}
			}

			tentativeG := cur.g + stepCost
			if best, ok := bestG[next]; ok && tentativeG >= best {
				continue
			}
			bestG[next] = tentativeG

			heap.Push(open, &node{
				pos:    next,
				g:      tentativeG,
				f:      tentativeG + octile(next, goal),
				parent: cur,
				seq:    seq,
			})
			seq++
		}
	}

	return nil
}

func reconstruct(n *node) []cell {
	var path []cell
	for cur := n; cur != nil; cur = cur.parent {
		path = append([]cell{cur.pos}, path...)
	}
	return path
}

// bresenhamClear reports whether every cell on the line from a to b
// (inclusive) is free, using integer Bresenham stepping.
func bresenhamClear(g *Grid, a, b cell) bool {
	r0, c0 := a.r, a.c
	r1, c1 := b.r, b.c

	dr := iabs(r1 - r0)
	dc := iabs(c1 - c0)
	sr := isign(r1 - r0)
	sc := isign(c1 - c0)
	err := dr - dc

	r, c := r0, c0
	for {
		if !g.Free(r, c) {
			return false
		}
		if r == r1 && c == c1 {
			return true
		}
		e2 := 2 * err
		if e2 > -dc {
			err -= dc
			r += sr
		}
		if e2 < dr {
			err += dr
			c += sc
		}
	}
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func isign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// smoothPath applies greedy shortcut smoothing: starting at index 0, scan
// from the path's tail backward and retain the farthest index reachable
// by a clear line of sight, then repeat from there (spec §4.1 step 4).
// The result is never longer (Euclidean) than the input, since every
// kept edge is a straight line replacing one or more grid-aligned hops.
func smoothPath(g *Grid, path []cell) []cell {
	if len(path) <= 2 {
		return path
	}

	smoothed := []cell{path[0]}
	i := 0
	for i < len(path)-1 {
		j := len(path) - 1
		for j > i+1 && !bresenhamClear(g, path[i], path[j]) {
			j--
		}
		smoothed = append(smoothed, path[j])
		i = j
	}
	return smoothed
}
