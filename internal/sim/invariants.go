package sim

import (
	"errors"
	"fmt"

	"citysim/internal/car"
	"citysim/internal/cell"
	"citysim/internal/grid"
)

// ErrInvariantViolation marks a post-step consistency check failure. It is
// fatal to the run it occurred in but never to the sweep containing it.
var ErrInvariantViolation = errors.New("sim: invariant violation")

// CheckInvariants verifies basic structural consistency between the grid
// and the car list: no car on a Block, no two cars sharing a cell, rotary
// membership matching layout, and dynamic/layout agreement everywhere
// else. It is not called every tick in production sweeps (that would
// dominate run time); callers decide the checking cadence.
func CheckInvariants(g *grid.Grid, cars []*car.Car) error {
	carAt := make(map[grid.Pos]int, len(cars))

	for i, c := range cars {
		if g.Layout(c.Head) == cell.Block {
			return fmt.Errorf("%w: car %d head %v sits on a Block cell", ErrInvariantViolation, i, c.Head)
		}
		if other, dup := carAt[c.Head]; dup {
			return fmt.Errorf("%w: cars %d and %d both occupy %v", ErrInvariantViolation, other, i, c.Head)
		}
		carAt[c.Head] = i

		isIntersection := g.Layout(c.Head) == cell.Intersection
		if c.OnRotary != isIntersection {
			return fmt.Errorf("%w: car %d OnRotary=%v but layout at %v is %v", ErrInvariantViolation, i, c.OnRotary, c.Head, g.Layout(c.Head))
		}
		if g.Dynamic(c.Head) != cell.CarHead {
			return fmt.Errorf("%w: car %d head %v is not marked CarHead in dynamic", ErrInvariantViolation, i, c.Head)
		}
	}

	n := g.Size()
	seen := 0
	for r := 0; r < n; r++ {
		for col := 0; col < n; col++ {
			p := grid.Pos{Row: r, Col: col}
			if g.Dynamic(p) == cell.CarHead {
				seen++
				if _, ok := carAt[p]; !ok {
					return fmt.Errorf("%w: dynamic cell %v marked CarHead has no owning car", ErrInvariantViolation, p)
				}
				continue
			}
			if g.Dynamic(p) != g.Layout(p) {
				return fmt.Errorf("%w: dynamic/layout disagree at non-CarHead cell %v", ErrInvariantViolation, p)
			}
		}
	}
	if seen != len(cars) {
		return fmt.Errorf("%w: %d CarHead cells in dynamic but %d cars", ErrInvariantViolation, seen, len(cars))
	}

	return nil
}
