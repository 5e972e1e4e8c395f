package sim

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"citysim/internal/car"
	"citysim/internal/grid"
	"citysim/internal/rng"
)

func TestTick(t *testing.T) {
	Convey("Given a grid with a few cars", t, func() {
		g, err := grid.Build(20, 10, 5)
		So(err, ShouldBeNil)

		src := rng.New(7)
		cars, err := rng.PlaceCars(g, 10, 5, 100, rng.MaxSpeed, car.FreeMovement, src)
		So(err, ShouldBeNil)

		Convey("Tick returns one move count per car", func() {
			moves := Tick(g, cars, car.FreeMovement, src)
			So(moves, ShouldHaveLength, len(cars))
		})

		Convey("after Tick every car's head is consistent with the grid's dynamic plane", func() {
			Tick(g, cars, car.FreeMovement, src)
			So(CheckInvariants(g, cars), ShouldBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a grid and cars", t, func() {
		g, err := grid.Build(20, 10, 5)
		So(err, ShouldBeNil)

		src := rng.New(9)
		cars, err := rng.PlaceCars(g, 10, 5, 100, rng.MaxSpeed, car.FreeMovement, src)
		So(err, ShouldBeNil)

		Convey("Run invokes the hook exactly steps times when it never stops early", func() {
			ticks := 0
			Run(g, cars, car.FreeMovement, src, 25, func(tick int, moves []int) ControlFlow {
				ticks++
				return Continue
			})
			So(ticks, ShouldEqual, 25)
		})

		Convey("Run stops as soon as the hook returns Stop", func() {
			ticks := 0
			Run(g, cars, car.FreeMovement, src, 25, func(tick int, moves []int) ControlFlow {
				ticks++
				if ticks == 3 {
					return Stop
				}
				return Continue
			})
			So(ticks, ShouldEqual, 3)
		})
	})
}
