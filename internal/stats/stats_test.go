package stats

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMeanAndStdDev(t *testing.T) {
	Convey("Given a small sample", t, func() {
		xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

		Convey("Mean is the arithmetic average", func() {
			So(Mean(xs), ShouldAlmostEqual, 5.0, 1e-9)
		})

		Convey("SampleStdDev matches the textbook (n-1) formula", func() {
			m := Mean(xs)
			So(SampleStdDev(xs, m), ShouldAlmostEqual, 2.138089935, 1e-6)
		})

		Convey("an empty slice yields zero mean and zero stddev", func() {
			So(Mean(nil), ShouldEqual, 0)
			So(SampleStdDev(nil, 0), ShouldEqual, 0)
		})

		Convey("a single observation yields zero stddev, not NaN", func() {
			So(SampleStdDev([]float64{3}, 3), ShouldEqual, 0)
		})
	})
}

func TestStudentTQuantile(t *testing.T) {
	Convey("Given a large degrees-of-freedom count", t, func() {
		Convey("the two-sided 95% quantile approaches the normal value 1.96", func() {
			q := StudentTQuantile(0.95, 1000)
			So(q, ShouldAlmostEqual, 1.96, 0.01)
		})

		Convey("zero degrees of freedom yields zero rather than panicking", func() {
			So(StudentTQuantile(0.95, 0), ShouldEqual, 0)
		})
	})
}

func TestConfidenceInterval(t *testing.T) {
	Convey("Given a mean, standard error, and sample size", t, func() {
		lower, upper := ConfidenceInterval(10, 1, 30)

		Convey("the interval is symmetric around the mean", func() {
			So((lower+upper)/2, ShouldAlmostEqual, 10, 1e-9)
		})

		Convey("the interval widens for fewer observations", func() {
			lowerSmall, upperSmall := ConfidenceInterval(10, 1, 3)
			So(upperSmall-lowerSmall, ShouldBeGreaterThan, upper-lower)
		})

		Convey("fewer than two samples collapses to a zero-width interval", func() {
			l, u := ConfidenceInterval(10, 1, 1)
			So(l, ShouldEqual, 10)
			So(u, ShouldEqual, 10)
		})
	})
}

func TestShapiroWilk(t *testing.T) {
	Convey("Given fewer than three samples", t, func() {
		_, _, err := ShapiroWilk([]float64{1, 2})
		Convey("ErrTooFewSamples is returned", func() {
			So(err, ShouldEqual, ErrTooFewSamples)
		})
	})

	Convey("Given a constant sample", t, func() {
		w, p, err := ShapiroWilk([]float64{5, 5, 5, 5, 5})
		Convey("W and p both report 1 without dividing by zero", func() {
			So(err, ShouldBeNil)
			So(w, ShouldEqual, 1)
			So(p, ShouldEqual, 1)
		})
	})

	Convey("Given a roughly linear (strongly non-normal-shaped but symmetric) sample", t, func() {
		xs := make([]float64, 20)
		for i := range xs {
			xs[i] = float64(i)
		}
		w, p, err := ShapiroWilk(xs)

		Convey("W is computed without error and lies in (0, 1]", func() {
			So(err, ShouldBeNil)
			So(w, ShouldBeGreaterThan, 0)
			So(w, ShouldBeLessThanOrEqualTo, 1)
			So(p, ShouldBeGreaterThanOrEqualTo, 0)
			So(math.IsNaN(p), ShouldBeFalse)
		})
	})
}
