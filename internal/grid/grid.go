// Package grid builds and owns the static road lattice: the directional
// lane layout, the rotary rings, and the per-tick occupancy plane cars move
// through. A Grid is the sole shared mutable resource during a run; every
// car update borrows it exclusively for the duration of that car's move.
package grid

import (
	"errors"
	"fmt"

	"citysim/internal/cell"
)

// ErrBadGeometry is returned by Build when N/B/lane preconditions fail.
var ErrBadGeometry = errors.New("grid: bad geometry")

// Pos is a row-major toroidal coordinate.
type Pos struct {
	Row, Col int
}

// Ring is one rotary's four intersection cells, ordered so that advancing
// the index by one follows the fixed clockwise circulation convention
// (row 0 at the top, column 0 at the left).
type Ring struct {
	Cells [4]Pos
}

// Grid is the static lattice plus its live occupancy plane.
type Grid struct {
	size      int
	blockSize int
	maxSpeed  int

	layout  [][]cell.Kind // immutable background, never CarHead
	dynamic [][]cell.Kind // current occupancy, includes CarHead

	rings    []Ring
	ringID   map[Pos]int // cell -> index into rings
	ringSlot map[Pos]int // cell -> index (0..3) within its ring

	nRoadCells         int
	nIntersectionCells int
}

// Size returns N, the side length of the N×N lattice.
func (g *Grid) Size() int { return g.size }

// MaxSpeed returns the lattice-wide speed ceiling.
func (g *Grid) MaxSpeed() int { return g.maxSpeed }

// NRoadCells returns the memoized count of road cells.
func (g *Grid) NRoadCells() int { return g.nRoadCells }

// NIntersectionCells returns the memoized count of intersection cells.
func (g *Grid) NIntersectionCells() int { return g.nIntersectionCells }

// Wrap reduces a coordinate modulo the grid size, handling negatives.
func (g *Grid) Wrap(p Pos) Pos {
	n := g.size
	r := p.Row % n
	if r < 0 {
		r += n
	}
	c := p.Col % n
	if c < 0 {
		c += n
	}
	return Pos{Row: r, Col: c}
}

// Step returns the toroidal neighbor of p displaced by d.
func (g *Grid) Step(p Pos, d cell.Delta) Pos {
	return g.Wrap(Pos{Row: p.Row + d.DRow, Col: p.Col + d.DCol})
}

// Layout returns the immutable background kind at p.
func (g *Grid) Layout(p Pos) cell.Kind { return g.layout[p.Row][p.Col] }

// Dynamic returns the current occupancy kind at p.
func (g *Grid) Dynamic(p Pos) cell.Kind { return g.dynamic[p.Row][p.Col] }

// Occupy marks p as holding a car's head.
func (g *Grid) Occupy(p Pos) { g.dynamic[p.Row][p.Col] = cell.CarHead }

// Vacate restores p's dynamic cell to its background layout kind.
func (g *Grid) Vacate(p Pos) { g.dynamic[p.Row][p.Col] = g.layout[p.Row][p.Col] }

// RingAt returns the ring containing p and p's index within it, if p is an
// intersection cell.
func (g *Grid) RingAt(p Pos) (ring *Ring, slot int, ok bool) {
	id, found := g.ringID[p]
	if !found {
		return nil, 0, false
	}
	return &g.rings[id], g.ringSlot[p], true
}

// Rings returns the ordered list of rotary rings (read-only use).
func (g *Grid) Rings() []Ring { return g.rings }

// AllDrivable calls fn for every road and intersection cell in layout order.
func (g *Grid) AllDrivable(fn func(Pos)) {
	for r := 0; r < g.size; r++ {
		for c := 0; c < g.size; c++ {
			p := Pos{Row: r, Col: c}
			if g.layout[r][c].IsDrivable() {
				fn(p)
			}
		}
	}
}

// Build constructs the static lattice: vertical two-lane roads at every
// column c with c%B==B/2, horizontal two-lane roads at every row r with
// r%B==B/2, and a rotary ring wherever their 2x2 lane regions cross.
// Preconditions: N >= 2B, B even and >= 4, N mod B in {0, B/2}, N >= 10.
// Violating any of these returns ErrBadGeometry.
func Build(n, blockSize, maxSpeed int) (*Grid, error) {
	if n < 10 {
		return nil, fmt.Errorf("%w: N=%d must be >= 10", ErrBadGeometry, n)
	}
	if blockSize < 4 || blockSize%2 != 0 {
		return nil, fmt.Errorf("%w: block size %d must be even and >= 4", ErrBadGeometry, blockSize)
	}
	if n < 2*blockSize {
		return nil, fmt.Errorf("%w: N=%d must be >= 2*blockSize=%d", ErrBadGeometry, n, 2*blockSize)
	}
	if rem := n % blockSize; rem != 0 && rem != blockSize/2 {
		return nil, fmt.Errorf("%w: N=%d mod blockSize=%d must be 0 or blockSize/2", ErrBadGeometry, n, blockSize)
	}
	if maxSpeed < 1 {
		return nil, fmt.Errorf("%w: maxSpeed=%d must be >= 1", ErrBadGeometry, maxSpeed)
	}

	g := &Grid{
		size:      n,
		blockSize: blockSize,
		maxSpeed:  maxSpeed,
		ringID:    make(map[Pos]int),
		ringSlot:  make(map[Pos]int),
	}

	g.layout = make([][]cell.Kind, n)
	for r := range g.layout {
		g.layout[r] = make([]cell.Kind, n)
		for c := range g.layout[r] {
			g.layout[r][c] = cell.Block
		}
	}

	vCols := laneStarts(n, blockSize) // each c is the lower-index column of a 2-wide vertical road
	hRows := laneStarts(n, blockSize)

	for _, c0 := range vCols {
		c1 := (c0 + 1) % n
		for r := 0; r < n; r++ {
			g.layout[r][c0] = cell.VDown
			g.layout[r][c1] = cell.VUp
		}
	}
	for _, r0 := range hRows {
		r1 := (r0 + 1) % n
		for c := 0; c < n; c++ {
			g.layout[r0][c] = cell.HLeft
			g.layout[r1][c] = cell.HRight
		}
	}

	for _, r0 := range hRows {
		r1 := (r0 + 1) % n
		for _, c0 := range vCols {
			c1 := (c0 + 1) % n
			ringCells := [4]Pos{
				{Row: r0, Col: c0},
				{Row: r0, Col: c1},
				{Row: r1, Col: c1},
				{Row: r1, Col: c0},
			}
			id := len(g.rings)
			g.rings = append(g.rings, Ring{Cells: ringCells})
			for slot, p := range ringCells {
				g.layout[p.Row][p.Col] = cell.Intersection
				g.ringID[p] = id
				g.ringSlot[p] = slot
			}
		}
	}

	g.dynamic = make([][]cell.Kind, n)
	for r := range g.layout {
		g.dynamic[r] = make([]cell.Kind, n)
		copy(g.dynamic[r], g.layout[r])
	}

	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			switch g.layout[r][c] {
			case cell.Intersection:
				g.nIntersectionCells++
			case cell.VUp, cell.VDown, cell.HLeft, cell.HRight:
				g.nRoadCells++
			}
		}
	}

	return g, nil
}

// laneStarts returns, in ascending order, every column (or row) index c in
// [0,n) such that c%blockSize == blockSize/2 — the lower-index lane of each
// two-wide road.
func laneStarts(n, blockSize int) []int {
	var starts []int
	half := blockSize / 2
	for c := 0; c < n; c++ {
		if c%blockSize == half {
			starts = append(starts, c)
		}
	}
	return starts
}
