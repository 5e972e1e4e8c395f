// Package sim orders the per-tick car updates and exposes a straight
// for-loop-with-hook simulation driver: no async, a per-tick callback
// controls whether the run continues.
package sim

import (
	"citysim/internal/car"
	"citysim/internal/grid"
)

// ControlFlow is returned by a TickHook to decide whether the run continues.
type ControlFlow int

const (
	Continue ControlFlow = iota
	Stop
)

// TickHook is called once per tick with the tick index and that tick's move
// vector. Returning Stop ends the run after this tick.
type TickHook func(tick int, moves []int) ControlFlow

// Tick advances every car exactly once, in slice order, and returns the
// per-car step counts. Updates are sequential within a tick: an earlier
// car's new position is visible to a later car's update in the same tick
// — this is why cars is iterated directly rather than snapshotted first.
func Tick(g *grid.Grid, cars []*car.Car, discipline car.Discipline, rnd car.RandSource) []int {
	moves := make([]int, len(cars))
	for i, c := range cars {
		moves[i] = c.Update(g, discipline, rnd)
	}
	return moves
}

// Run executes up to steps ticks, invoking hook after each one. It stops
// early if hook returns Stop.
func Run(
	g *grid.Grid,
	cars []*car.Car,
	discipline car.Discipline,
	rnd car.RandSource,
	steps int,
	hook TickHook,
) {
	for t := 0; t < steps; t++ {
		moves := Tick(g, cars, discipline, rnd)
		if hook(t, moves) == Stop {
			return
		}
	}
}
