package grid

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"citysim/internal/cell"
)

func TestBuild(t *testing.T) {
	Convey("Given geometry preconditions", t, func() {
		Convey("A too-small grid is rejected", func() {
			_, err := Build(9, 4, 2)
			So(err, ShouldNotBeNil)
		})

		Convey("An odd block size is rejected", func() {
			_, err := Build(20, 5, 2)
			So(err, ShouldNotBeNil)
		})

		Convey("A block size smaller than 4 is rejected", func() {
			_, err := Build(20, 2, 2)
			So(err, ShouldNotBeNil)
		})

		Convey("N not a multiple of B or B/2 is rejected", func() {
			_, err := Build(23, 10, 2)
			So(err, ShouldNotBeNil)
		})

		Convey("A valid geometry builds without error", func() {
			g, err := Build(20, 10, 2)
			So(err, ShouldBeNil)
			So(g.Size(), ShouldEqual, 20)
		})
	})

	Convey("Given a built grid", t, func() {
		g, err := Build(20, 10, 2)
		So(err, ShouldBeNil)

		Convey("layout and dynamic agree on every non-CarHead cell", func() {
			for r := 0; r < g.Size(); r++ {
				for c := 0; c < g.Size(); c++ {
					p := Pos{Row: r, Col: c}
					So(g.Dynamic(p), ShouldEqual, g.Layout(p))
				}
			}
		})

		Convey("every rotary ring contains only Intersection cells in layout", func() {
			for _, ring := range g.Rings() {
				for _, p := range ring.Cells {
					So(g.Layout(p), ShouldEqual, cell.Intersection)
				}
			}
		})

		Convey("road and intersection counts are memoized and consistent", func() {
			roads, inters := 0, 0
			for r := 0; r < g.Size(); r++ {
				for c := 0; c < g.Size(); c++ {
					k := g.Layout(Pos{Row: r, Col: c})
					if k.IsRoad() {
						roads++
					} else if k == cell.Intersection {
						inters++
					}
				}
			}
			So(g.NRoadCells(), ShouldEqual, roads)
			So(g.NIntersectionCells(), ShouldEqual, inters)
		})

		Convey("building twice with the same args yields equal layout and rings (idempotence)", func() {
			g2, err := Build(20, 10, 2)
			So(err, ShouldBeNil)
			So(g2.NRoadCells(), ShouldEqual, g.NRoadCells())
			So(g2.NIntersectionCells(), ShouldEqual, g.NIntersectionCells())
			for i, ring := range g.Rings() {
				So(g2.Rings()[i], ShouldResemble, ring)
			}
		})
	})

	Convey("Given a ring, its first cell is slot 0 and the next slot is also an intersection cell", t, func() {
		g, err := Build(20, 10, 2)
		So(err, ShouldBeNil)
		ring := g.Rings()[0]
		p := ring.Cells[0]
		_, slot, ok := g.RingAt(p)
		So(ok, ShouldBeTrue)
		So(slot, ShouldEqual, 0)
		next := ring.Cells[(slot+1)%4]
		So(g.Layout(next), ShouldEqual, cell.Intersection)
	})
}

func TestWrap(t *testing.T) {
	Convey("Wrap reduces coordinates modulo N, including negatives", t, func() {
		g, err := Build(20, 10, 2)
		So(err, ShouldBeNil)
		So(g.Wrap(Pos{Row: -1, Col: 0}), ShouldResemble, Pos{Row: 19, Col: 0})
		So(g.Wrap(Pos{Row: 20, Col: 20}), ShouldResemble, Pos{Row: 0, Col: 0})
	})
}
