package cell

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestIsRoadAndIsDrivable(t *testing.T) {
	Convey("Given each cell kind", t, func() {
		Convey("the four directional kinds are road and drivable", func() {
			for _, k := range AllRoadKinds {
				So(k.IsRoad(), ShouldBeTrue)
				So(k.IsDrivable(), ShouldBeTrue)
			}
		})

		Convey("Intersection is drivable but not road", func() {
			So(Intersection.IsRoad(), ShouldBeFalse)
			So(Intersection.IsDrivable(), ShouldBeTrue)
		})

		Convey("Block and CarHead are neither road nor drivable", func() {
			So(Block.IsRoad(), ShouldBeFalse)
			So(Block.IsDrivable(), ShouldBeFalse)
			So(CarHead.IsRoad(), ShouldBeFalse)
			So(CarHead.IsDrivable(), ShouldBeFalse)
		})
	})
}

func TestDirection(t *testing.T) {
	Convey("Direction returns the correct unit displacement per road kind", t, func() {
		So(Direction(VUp), ShouldResemble, Delta{DRow: -1, DCol: 0})
		So(Direction(VDown), ShouldResemble, Delta{DRow: 1, DCol: 0})
		So(Direction(HLeft), ShouldResemble, Delta{DRow: 0, DCol: -1})
		So(Direction(HRight), ShouldResemble, Delta{DRow: 0, DCol: 1})
	})

	Convey("Direction panics on a non-road kind", t, func() {
		So(func() { Direction(Intersection) }, ShouldPanic)
		So(func() { Direction(Block) }, ShouldPanic)
	})
}

func TestRotateClockwise(t *testing.T) {
	Convey("RotateClockwise cycles through all four directions and returns to start", t, func() {
		k := VUp
		seen := []Kind{k}
		for i := 0; i < 3; i++ {
			k = RotateClockwise(k)
			seen = append(seen, k)
		}
		So(seen, ShouldResemble, []Kind{VUp, HRight, VDown, HLeft})
		So(RotateClockwise(HLeft), ShouldEqual, VUp)
	})

	Convey("RotateClockwise panics on a non-road kind", t, func() {
		So(func() { RotateClockwise(CarHead) }, ShouldPanic)
	})
}
