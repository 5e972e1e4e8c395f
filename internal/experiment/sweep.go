package experiment

import (
	"context"
	"sort"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"citysim/internal/config"
	"citysim/internal/metrics"
	"citysim/internal/stats"
)

// SweepPoint aggregates every replicate run at one (axis value, density)
// pair — density is always the secondary dimension, crossed with every
// configured axis value.
type SweepPoint struct {
	AxisValue        float64
	Density          float64
	Replicates       int
	Gridlocked       int
	Failed           int
	Skipped          bool
	MeanFlow         float64
	StdDevFlow       float64
	StdErrFlow       float64
	CILower          float64
	CIUpper          float64
	MeanVelocity     float64
	MeanDensity      float64
	MeanLargestJam   float64
	NormalityChecked bool
	ShapiroW         float64
	ShapiroP         float64
}

// SweepReport summarizes an entire sweep: the per-(axis value, density)
// aggregates plus overall completed/skipped (gridlock)/failed
// (invariant violation) replicate counts, per spec.md §7.
type SweepReport struct {
	Points    []SweepPoint
	Completed int
	Skipped   int
	Failed    int
}

// Progress exposes a sweep's live running totals while it is still in
// flight, for a viewer endpoint to poll. Run creates one of these for the
// whole sweep and discards it; callers that want to observe it mid-sweep
// should use RunWithProgress instead.
type Progress = metrics.ProgressCounter

// Run executes the full sweep described by cfg: for each axis value, in
// order, it crosses every density in cfg.DensityValues (processed in
// ascending order), launches cfg.Replicates replicate runs per
// (axis value, density) pair across a bounded worker pool, aggregates
// their steady-state metrics, and skips any remaining (higher) densities
// for that axis value once every replicate at the current density
// gridlocked — once the lattice can't sustain flow at a given density, it
// won't at any higher one either. Early termination resets at each new
// axis value: a gridlocked road-length/max-speed/compliance value says
// nothing about whether a different one gridlocks at the same density.
func Run(ctx context.Context, cfg *config.SweepConfig) (*SweepReport, error) {
	return RunWithProgress(ctx, cfg, metrics.NewProgressCounter())
}

// RunWithProgress is Run, but folds every completed replicate into
// progress as it finishes, so a caller holding the same *Progress can
// poll it from another goroutine (e.g. a viewer endpoint) while the sweep
// is still running.
func RunWithProgress(ctx context.Context, cfg *config.SweepConfig, progress *Progress) (*SweepReport, error) {
	report := &SweepReport{}

	densities := append([]float64(nil), cfg.DensityValues...)
	sort.Float64s(densities)

	for _, axisValue := range cfg.AxisValues {
		axisGridlockedSoFar := false

		for _, density := range densities {
			if axisGridlockedSoFar {
				report.Points = append(report.Points, SweepPoint{AxisValue: axisValue, Density: density, Skipped: true})
				report.Skipped += cfg.Replicates
				continue
			}

			records, err := runPointPool(ctx, cfg, axisValue, density, progress)
			if err != nil {
				return report, err
			}

			point := aggregate(axisValue, density, records, cfg.CheckNormality)
			report.Points = append(report.Points, point)
			report.Completed += point.Replicates - point.Gridlocked - point.Failed
			report.Skipped += point.Gridlocked
			report.Failed += point.Failed

			if point.Gridlocked == point.Replicates {
				axisGridlockedSoFar = true
			}
		}
	}

	return report, nil
}

// runPointPool fans cfg.Replicates jobs out across cfg.NWorkers workers
// and fans their results back in, the same worker-pool-plus-merge shape
// used for the agent pool elsewhere in this codebase, wrapped in an
// errgroup so a context cancellation tears every worker down together.
func runPointPool(ctx context.Context, cfg *config.SweepConfig, axisValue, density float64, progress *Progress) ([]RunRecord, error) {
	group, groupCtx := errgroup.WithContext(ctx)

	jobs := make(chan int, cfg.Replicates)
	for i := 0; i < cfg.Replicates; i++ {
		jobs <- i
	}
	close(jobs)

	nworkers := cfg.NWorkers
	if nworkers > cfg.Replicates {
		nworkers = cfg.Replicates
	}
	if nworkers < 1 {
		nworkers = 1
	}

	workers := make([]<-chan RunRecord, nworkers)
	for i := 0; i < nworkers; i++ {
		workers[i] = worker(groupCtx, jobs, cfg, axisValue, density)
	}
	merged := channerics.Merge(groupCtx.Done(), workers...)

	var records []RunRecord
	group.Go(func() error {
		for rec := range merged {
			progress.RecordReplicate(rec.SteadyFlow, rec.Gridlocked, rec.Failed)
			records = append(records, rec)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// worker pulls replicate indices from jobs and runs each one. A gridlocked
// or invariant-violated replicate is carried in RunRecord.Gridlocked /
// RunRecord.Failed rather than aborting its siblings — per spec.md §7,
// an invariant violation is fatal to its own run but never to the sweep.
func worker(ctx context.Context, jobs <-chan int, cfg *config.SweepConfig, axisValue, density float64) <-chan RunRecord {
	out := make(chan RunRecord)
	go func() {
		defer close(out)
		for idx := range jobs {
			rec, _ := runReplicate(cfg, axisValue, density, idx)
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// aggregate reduces a set of replicate records into one SweepPoint: mean,
// sample standard deviation, standard error, and 95% confidence interval
// of steady-state traffic flow across the replicates that neither
// gridlocked nor hit an invariant violation, plus an optional
// Shapiro-Wilk normality check.
func aggregate(axisValue, density float64, records []RunRecord, checkNormality bool) SweepPoint {
	point := SweepPoint{AxisValue: axisValue, Density: density, Replicates: len(records)}

	var flows []float64
	var sumVel, sumDensity, sumJam float64
	for _, r := range records {
		if r.Failed {
			point.Failed++
			continue
		}
		if r.Gridlocked {
			point.Gridlocked++
			continue
		}
		flows = append(flows, r.SteadyFlow)
		sumVel += r.SteadyVelocity
		sumDensity += r.SteadyDensity
		sumJam += float64(r.LargestJamSize)
	}

	n := len(flows)
	if n == 0 {
		return point
	}

	mean := stats.Mean(flows)
	sd := stats.SampleStdDev(flows, mean)
	se := stats.StandardError(sd, n)
	lower, upper := stats.ConfidenceInterval(mean, se, n)

	point.MeanFlow = mean
	point.StdDevFlow = sd
	point.StdErrFlow = se
	point.CILower = lower
	point.CIUpper = upper
	point.MeanVelocity = sumVel / float64(n)
	point.MeanDensity = sumDensity / float64(n)
	point.MeanLargestJam = sumJam / float64(n)

	if checkNormality && n >= 3 {
		w, p, err := stats.ShapiroWilk(flows)
		if err == nil {
			point.NormalityChecked = true
			point.ShapiroW = w
			point.ShapiroP = p
		}
	}

	return point
}
