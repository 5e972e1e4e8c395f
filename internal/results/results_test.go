package results

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"citysim/internal/experiment"
)

func TestWriteCSV(t *testing.T) {
	Convey("Given a small sweep report", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "sweep.csv")
		report := &experiment.SweepReport{
			Points: []experiment.SweepPoint{
				{AxisValue: 0.1, Replicates: 3, MeanFlow: 1.23},
				{AxisValue: 0.2, Skipped: true},
			},
			Completed: 3,
		}

		err := WriteCSV(path, report)

		Convey("the file is written with one header row plus one row per point", func() {
			So(err, ShouldBeNil)
			b, readErr := os.ReadFile(path)
			So(readErr, ShouldBeNil)
			So(string(b), ShouldContainSubstring, "axis_value")
			So(string(b), ShouldContainSubstring, "0.1")
			So(string(b), ShouldContainSubstring, "true")
		})
	})
}

func TestWriteMetadata(t *testing.T) {
	Convey("Given sweep metadata", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "meta.json")
		meta := Metadata{GeneratedAt: "2026-07-31T00:00:00Z", AxisName: "density", StatMethod: "student-t"}

		err := WriteMetadata(path, meta)

		Convey("the file round-trips as valid JSON containing the fields", func() {
			So(err, ShouldBeNil)
			b, readErr := os.ReadFile(path)
			So(readErr, ShouldBeNil)
			So(string(b), ShouldContainSubstring, "density")
			So(string(b), ShouldContainSubstring, "student-t")
		})
	})
}
