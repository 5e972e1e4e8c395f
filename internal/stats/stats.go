// Package stats provides the replicate-aggregation numerics a sweep needs:
// Student-t quantiles for confidence intervals, and a normality check
// (Shapiro-Wilk) that is flagged but never fails a sweep outright on a
// non-normal replicate sample.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStdDev returns the (n-1) sample standard deviation, or 0 if fewer
// than two observations are present.
func SampleStdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// StandardError returns SampleStdDev / sqrt(n).
func StandardError(sampleStdDev float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sampleStdDev / math.Sqrt(float64(n))
}

// StudentTQuantile returns the two-sided critical value t* such that
// P(-t* < T < t*) == confidence, for a Student-t distribution with df
// degrees of freedom. Used to build a 95% confidence interval around a
// replicate mean.
func StudentTQuantile(confidence float64, df float64) float64 {
	if df <= 0 {
		return 0
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	upperTail := 1 - (1-confidence)/2
	return t.Quantile(upperTail)
}

// ConfidenceInterval returns the 95% CI half-width added/subtracted from
// mean, using the Student-t quantile for n-1 degrees of freedom.
func ConfidenceInterval(mean, stdErr float64, n int) (lower, upper float64) {
	if n < 2 {
		return mean, mean
	}
	tStar := StudentTQuantile(0.95, float64(n-1))
	margin := tStar * stdErr
	return mean - margin, mean + margin
}

// ErrTooFewSamples is returned by ShapiroWilk when fewer than 3
// observations are given.
var ErrTooFewSamples = errors.New("stats: shapiro-wilk requires at least 3 samples")

// ShapiroWilk computes the Shapiro-Wilk W statistic and its approximate
// p-value using Royston's (1995) normalizing transformation (AS R94). No
// actively-maintained Go ecosystem package implements Shapiro-Wilk (see
// DESIGN.md), so this is a direct, from-scratch port of the published
// algorithm; it uses gonum's normal distribution for the order-statistic
// quantiles and the final normal-tail p-value, rather than hand-rolling
// those as well.
func ShapiroWilk(data []float64) (w float64, p float64, err error) {
	n := len(data)
	if n < 3 {
		return 0, 0, ErrTooFewSamples
	}

	xs := make([]float64, n)
	copy(xs, data)
	sort.Float64s(xs)

	mean := Mean(xs)
	ssTotal := 0.0
	for _, x := range xs {
		d := x - mean
		ssTotal += d * d
	}
	if ssTotal == 0 {
		// A degenerate (constant) sample is perfectly "normal" in the
		// trivial sense; report W=1, p=1 rather than dividing by zero.
		return 1, 1, nil
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	m := make([]float64, n)
	ssm := 0.0
	for i := 0; i < n; i++ {
		m[i] = normal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssm += m[i] * m[i]
	}
	rsn := 1 / math.Sqrt(float64(n))

	a := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = m[i] / math.Sqrt(ssm)
	}

	if n > 5 {
		u := rsn
		an := -2.706056*pow5(u) + 4.434685*pow4(u) - 2.071190*pow3(u) - 0.147981*u*u + 0.221157*u + a[n-1]
		an1 := -3.582633*pow5(u) + 5.682633*pow4(u) - 1.752461*pow3(u) - 0.293762*u*u + 0.042981*u + a[n-2]
		fac := math.Sqrt((ssm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1))
		for i := 2; i < n-2; i++ {
			a[i] = m[i] / fac
		}
		a[n-1] = an
		a[n-2] = an1
		a[0] = -an
		a[1] = -an1
	} else if n > 3 {
		u := rsn
		an := -2.706056*pow5(u) + 4.434685*pow4(u) - 2.071190*pow3(u) - 0.147981*u*u + 0.221157*u + a[n-1]
		fac := math.Sqrt((ssm - 2*m[n-1]*m[n-1]) / (1 - 2*an*an))
		for i := 1; i < n-1; i++ {
			a[i] = m[i] / fac
		}
		a[n-1] = an
		a[0] = -an
	}

	num := 0.0
	for i := 0; i < n; i++ {
		num += a[i] * xs[i]
	}
	w = (num * num) / ssTotal
	if w > 1 {
		w = 1
	}

	var zw, mu, sigma float64
	nf := float64(n)
	switch {
	case n <= 11:
		gamma := -2.273 + 0.459*nf
		zw = -math.Log(gamma - math.Log(1-w))
		mu = 0.5440 - 0.39978*nf + 0.025054*nf*nf - 0.0006714*nf*nf*nf
		sigma = math.Exp(1.3822 - 0.77857*nf + 0.062767*nf*nf - 0.0020322*nf*nf*nf)
	default:
		lnN := math.Log(nf)
		zw = math.Log(1 - w)
		mu = -1.5861 - 0.31082*lnN - 0.083751*lnN*lnN + 0.0038915*lnN*lnN*lnN
		sigma = math.Exp(-0.4803 - 0.082676*lnN + 0.0030302*lnN*lnN)
	}

	z := (zw - mu) / sigma
	p = 1 - normal.CDF(z)
	return w, p, nil
}

func pow3(x float64) float64 { return x * x * x }
func pow4(x float64) float64 { return x * x * x * x }
func pow5(x float64) float64 { return x * x * x * x * x }
