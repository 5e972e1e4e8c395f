// Package experiment runs a parameter sweep: for each value along the
// configured axis, it launches a fixed number of independent replicate
// simulations, aggregates their steady-state metrics, and reports which
// axis values gridlocked before finishing.
package experiment

import (
	"errors"
	"fmt"

	"citysim/internal/car"
	"citysim/internal/config"
	"citysim/internal/grid"
	"citysim/internal/metrics"
	"citysim/internal/rng"
	"citysim/internal/sim"
)

// ErrGridlocked marks a replicate that hit the configured consecutive
// zero-movement streak before completing its run. It is not treated as a
// failure; gridlocked replicates are reported, not discarded.
var ErrGridlocked = errors.New("experiment: replicate gridlocked")

// invariantCheckInterval is the tick cadence at which runReplicate calls
// sim.CheckInvariants: every tick would dominate run time on a large
// lattice, so a run is checked periodically and once more on its final
// tick, turning any sim.ErrInvariantViolation into an aborted replicate
// rather than silently corrupting the rest of the run.
const invariantCheckInterval = 100

// RunRecord is one replicate's outcome at one (axis value, density) pair.
type RunRecord struct {
	AxisValue      float64
	Density        float64
	Replicate      int
	Gridlocked     bool
	Failed         bool
	TicksRun       int
	SteadyFlow     float64
	SteadyVelocity float64
	SteadyDensity  float64
	LargestJamSize int
}

func toDiscipline(d config.Discipline) car.Discipline {
	if d == config.FixedDestination {
		return car.FixedDestination
	}
	return car.FreeMovement
}

// runReplicate builds a fresh grid and car population for one (axisValue,
// density, replicate) triple and runs it to completion, or until it
// gridlocks. Density is always the secondary sweep dimension: it is never
// itself the configured axis, only ever crossed with one.
func runReplicate(cfg *config.SweepConfig, axisValue, density float64, replicate int) (RunRecord, error) {
	latticeSize := cfg.LatticeSize
	blockSize := cfg.BlockSize
	maxSpeed := cfg.MaxSpeed
	compliancePct := cfg.CompliancePct

	switch cfg.Axis {
	case config.AxisRoadLength:
		blockSize = int(axisValue)
	case config.AxisMaxSpeed:
		maxSpeed = int(axisValue)
	case config.AxisCompliance:
		compliancePct = int(axisValue)
	}

	g, err := grid.Build(latticeSize, blockSize, maxSpeed)
	if err != nil {
		return RunRecord{}, fmt.Errorf("experiment: building grid: %w", err)
	}

	discipline := toDiscipline(cfg.Discipline)
	src := rng.ForReplicate(cfg.BaseSeed, replicate)

	totalDrivable := g.NRoadCells() + g.NIntersectionCells()
	carCount := int(density * float64(totalDrivable))
	if carCount < 0 {
		carCount = 0
	}
	if carCount > totalDrivable {
		carCount = totalDrivable
	}

	cars, err := rng.PlaceCars(g, carCount, maxSpeed, compliancePct, rng.MaxSpeed, discipline, src)
	if err != nil {
		return RunRecord{}, fmt.Errorf("experiment: placing cars: %w", err)
	}

	densityTracker := metrics.NewDensityTracker()
	jamTracker := metrics.NewJamTracker()

	warmupTicks := int(cfg.WarmupFraction * float64(cfg.Steps))
	zeroStreak := 0
	gridlocked := false
	ticksRun := 0
	var invariantErr error

	sim.Run(g, cars, discipline, src, cfg.Steps, func(tick int, moves []int) sim.ControlFlow {
		ticksRun = tick + 1
		rec := densityTracker.Observe(tick, g, cars, moves)
		jamTracker.Observe(cars, moves)

		if tick%invariantCheckInterval == 0 || tick == cfg.Steps-1 {
			if err := sim.CheckInvariants(g, cars); err != nil {
				invariantErr = fmt.Errorf("experiment: axis=%v density=%v replicate=%d at tick %d: %w", axisValue, density, replicate, tick, err)
				return sim.Stop
			}
		}

		if tick >= warmupTicks {
			if rec.CellsMoved == 0 {
				zeroStreak++
			} else {
				zeroStreak = 0
			}
			if zeroStreak >= cfg.GridlockStreak {
				gridlocked = true
				return sim.Stop
			}
		}
		return sim.Continue
	})

	if invariantErr != nil {
		failedResult := RunRecord{
			AxisValue: axisValue,
			Density:   density,
			Replicate: replicate,
			Failed:    true,
			TicksRun:  ticksRun,
		}
		return failedResult, invariantErr
	}

	history := densityTracker.History()
	steadyTicks := int(cfg.SteadyStateFraction * float64(cfg.Steps))
	steadyFlow, steadyVelocity, steadyDensity := steadyStateAverage(history, warmupTicks, steadyTicks)
	_, largestJam := jamTracker.Analyze(g)

	result := RunRecord{
		AxisValue:      axisValue,
		Density:        density,
		Replicate:      replicate,
		Gridlocked:     gridlocked,
		TicksRun:       ticksRun,
		SteadyFlow:     steadyFlow,
		SteadyVelocity: steadyVelocity,
		SteadyDensity:  steadyDensity,
		LargestJamSize: largestJam,
	}
	if gridlocked {
		return result, fmt.Errorf("%w: axis=%v density=%v replicate=%d at tick %d", ErrGridlocked, axisValue, density, replicate, ticksRun)
	}
	return result, nil
}

// steadyStateAverage averages the trailing steadyTicks records of history,
// never reaching back before warmupTicks: the window is
// [max(warmupTicks, len(history)-steadyTicks), len(history)). If that
// window is empty (e.g. the run gridlocked before warmup completed), the
// steady-state values are all zero.
func steadyStateAverage(history []metrics.Record, warmupTicks, steadyTicks int) (flow, velocity, density float64) {
	start := len(history) - steadyTicks
	if start < warmupTicks {
		start = warmupTicks
	}
	if start < 0 {
		start = 0
	}
	if start > len(history) {
		start = len(history)
	}
	window := history[start:]
	if len(window) == 0 {
		return 0, 0, 0
	}
	var sumFlow, sumVel, sumDensity float64
	for _, r := range window {
		sumFlow += r.TrafficFlow
		sumVel += r.AverageVelocity
		sumDensity += r.GlobalDensity
	}
	n := float64(len(window))
	return sumFlow / n, sumVel / n, sumDensity / n
}
