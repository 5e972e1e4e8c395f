package metrics

import (
	"sort"

	"citysim/internal/car"
	"citysim/internal/cell"
	"citysim/internal/grid"
)

// JamTracker maintains a per-cell "currently jammed" boolean, set when a
// stationary car's head is observed and reset when it moves.
type JamTracker struct {
	jammed map[grid.Pos]bool
}

// NewJamTracker returns an empty tracker.
func NewJamTracker() *JamTracker {
	return &JamTracker{jammed: make(map[grid.Pos]bool)}
}

// Observe replaces the jammed set with this tick's stationary-car
// positions. Called once per tick, after car updates have run.
func (jt *JamTracker) Observe(cars []*car.Car, moves []int) {
	jt.jammed = make(map[grid.Pos]bool, len(jt.jammed))
	for i, c := range cars {
		if moves[i] == 0 {
			jt.jammed[c.Head] = true
		}
	}
}

var neighborDeltas = [4]cell.Delta{
	{DRow: -1, DCol: 0},
	{DRow: 1, DCol: 0},
	{DRow: 0, DCol: -1},
	{DRow: 0, DCol: 1},
}

// Analyze builds the undirected toroidal 4-neighbor graph over the
// currently jammed cells and returns connected-component sizes sorted
// descending, plus the largest component size separately.
func (jt *JamTracker) Analyze(g *grid.Grid) (sizes []int, largest int) {
	visited := make(map[grid.Pos]bool, len(jt.jammed))

	for p := range jt.jammed {
		if visited[p] {
			continue
		}
		size := 0
		queue := []grid.Pos{p}
		visited[p] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			size++
			for _, d := range neighborDeltas {
				n := g.Step(cur, d)
				if jt.jammed[n] && !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
		sizes = append(sizes, size)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	if len(sizes) > 0 {
		largest = sizes[0]
	}
	return sizes, largest
}
