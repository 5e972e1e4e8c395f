// Package rng is the single seeded-PRNG façade: every source of randomness
// in a run — initial placement, personal speed draws, compliance
// assignment, and rotary commitments — is drawn from one *rand.Rand so two
// runs with the same configuration and seed produce identical metric
// sequences.
package rng

import (
	"errors"
	"fmt"
	"math/rand"

	"citysim/internal/car"
	"citysim/internal/cell"
	"citysim/internal/grid"
)

// ErrOutOfRoadCells is returned when more cars are requested than there are
// drivable cells to place them on.
var ErrOutOfRoadCells = errors.New("rng: more cars requested than drivable cells")

const (
	MinSpeed = 1
	MaxSpeed = 5
)

// Source wraps *rand.Rand behind the car.RandSource interface so car
// updates and placement draw from the same stream.
type Source struct {
	*rand.Rand
}

// New returns a façade seeded directly.
func New(seed int64) *Source {
	return &Source{Rand: rand.New(rand.NewSource(seed))}
}

// ForReplicate derives a per-replicate seed: base_seed + replicate_index.
func ForReplicate(baseSeed int64, replicateIndex int) *Source {
	return New(baseSeed + int64(replicateIndex))
}

func (s *Source) Intn(n int) int   { return s.Rand.Intn(n) }
func (s *Source) Float64() float64 { return s.Rand.Float64() }

// ringSlotRoadType maps a ring slot (the fixed construction order:
// top-left, top-right, bottom-right, bottom-left) to the road direction a
// car sitting in that slot would currently be oriented toward, consistent
// with how tryRingAdvance rotates RoadType by 90 degrees clockwise per
// step (grid.Build registers rings in that same slot order).
func ringSlotRoadType(slot int) cell.Kind {
	base := cell.VDown
	for i := 0; i < slot; i++ {
		base = cell.RotateClockwise(base)
	}
	return base
}

// PlaceCars draws `count` distinct drivable cells without replacement
// (Fisher-Yates over the full drivable-cell list, including rotary cells)
// and constructs a Car on each one. A compliancePct percent of cars
// (rounded down) get max_speed equal to latticeMaxSpeed; the rest draw
// uniformly from [rng.MinSpeed, capSpeed].
func PlaceCars(
	g *grid.Grid,
	count int,
	latticeMaxSpeed int,
	compliancePct int,
	capSpeed int,
	discipline car.Discipline,
	src *Source,
) ([]*car.Car, error) {
	var positions []grid.Pos
	g.AllDrivable(func(p grid.Pos) { positions = append(positions, p) })

	if count > len(positions) {
		return nil, fmt.Errorf("%w: requested %d, have %d drivable cells", ErrOutOfRoadCells, count, len(positions))
	}

	src.Shuffle(len(positions), func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })
	chosen := positions[:count]

	nCompliant := (compliancePct * count) / 100

	cars := make([]*car.Car, count)
	for i, p := range chosen {
		var roadType cell.Kind
		onRotary := g.Layout(p) == cell.Intersection
		if onRotary {
			_, slot, _ := g.RingAt(p)
			roadType = ringSlotRoadType(slot)
		} else {
			roadType = g.Layout(p)
		}

		speed := latticeMaxSpeed
		if i >= nCompliant {
			speed = MinSpeed + src.Intn(capSpeed-MinSpeed+1)
		}

		c := car.New(p, roadType, speed)
		c.OnRotary = onRotary
		g.Occupy(p)
		if onRotary && discipline == car.FixedDestination {
			c.SetTarget(cell.AllRoadKinds[src.Intn(len(cell.AllRoadKinds))])
		}
		cars[i] = c
	}

	return cars, nil
}
