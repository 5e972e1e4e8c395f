// Package metrics computes the per-tick macroscopic observables
// (DensityTracker) and the jam-cluster connected-component analysis
// (JamTracker).
package metrics

import (
	"citysim/internal/car"
	"citysim/internal/grid"
)

// Record is one tick's worth of macroscopic observables. All fields are
// dimensionless except AverageVelocity, whose unit is cells/tick.
type Record struct {
	Tick                int
	TotalCars           int
	MovingCars          int
	QueueLength         int
	CellsMoved          int
	RoadCars            int
	IntersectionCars    int
	RoadDensity         float64
	IntersectionDensity float64
	GlobalDensity       float64
	AverageVelocity     float64
	TrafficFlow         float64
}

// DensityTracker owns nothing but its own history; it reads the grid and
// move vector afresh each tick.
type DensityTracker struct {
	history []Record
}

// NewDensityTracker returns an empty tracker.
func NewDensityTracker() *DensityTracker {
	return &DensityTracker{}
}

// Observe computes this tick's Record from the grid, car list, and move
// vector, appends it to history, and returns it.
func (dt *DensityTracker) Observe(tick int, g *grid.Grid, cars []*car.Car, moves []int) Record {
	rec := Record{Tick: tick, TotalCars: len(cars)}

	for i, c := range cars {
		if moves[i] > 0 {
			rec.MovingCars++
		}
		rec.CellsMoved += moves[i]
		if g.Layout(c.Head).IsRoad() {
			rec.RoadCars++
		} else {
			rec.IntersectionCars++
		}
	}
	rec.QueueLength = rec.TotalCars - rec.MovingCars

	if n := g.NRoadCells(); n > 0 {
		rec.RoadDensity = float64(rec.RoadCars) / float64(n)
	}
	if n := g.NIntersectionCells(); n > 0 {
		rec.IntersectionDensity = float64(rec.IntersectionCars) / float64(n)
	}
	if total := g.NRoadCells() + g.NIntersectionCells(); total > 0 {
		rec.GlobalDensity = float64(rec.TotalCars) / float64(total)
	}
	if rec.TotalCars > 0 {
		rec.AverageVelocity = float64(rec.CellsMoved) / float64(rec.TotalCars)
	}
	rec.TrafficFlow = rec.GlobalDensity * rec.AverageVelocity

	dt.history = append(dt.history, rec)
	return rec
}

// History returns every record appended so far, in tick order.
func (dt *DensityTracker) History() []Record { return dt.history }
