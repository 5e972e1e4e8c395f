// Package results writes a completed sweep out to disk: one CSV row per
// sweep point (axis value, density pair) plus a JSON metadata sidecar describing how the sweep was
// run. CSV and JSON are both written with the standard library
// (encoding/csv, encoding/json); no third-party package in this codebase's
// dependency family offers a CSV writer, and the stock encoders are
// exactly what every comparable tool in the ecosystem reaches for.
package results

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"citysim/internal/experiment"
)

// ErrIOFailure wraps any filesystem error encountered while writing
// results.
var ErrIOFailure = errors.New("results: io failure")

// Metadata accompanies every sweep's CSV in a JSON sidecar.
type Metadata struct {
	GeneratedAt string `json:"generatedAt"`
	AxisName    string `json:"axisName"`
	StatMethod  string `json:"statMethod"`
	Completed   int    `json:"completed"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
}

var csvHeader = []string{
	"axis_value", "density", "replicates", "gridlocked", "failed", "skipped",
	"mean_flow", "stddev_flow", "stderr_flow", "ci_lower", "ci_upper",
	"mean_velocity", "mean_density", "mean_largest_jam",
	"shapiro_w", "shapiro_p",
}

// WriteCSV writes one row per SweepPoint to path, in the column order
// above. Skipped points still get a row, with the numeric fields left at
// their zero value, so the axis sequence in the file always matches
// report.Points.
func WriteCSV(path string, report *experiment.SweepReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating directory for %s: %v", ErrIOFailure, path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIOFailure, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIOFailure, err)
	}

	for _, p := range report.Points {
		row := []string{
			strconv.FormatFloat(p.AxisValue, 'g', -1, 64),
			strconv.FormatFloat(p.Density, 'g', -1, 64),
			strconv.Itoa(p.Replicates),
			strconv.Itoa(p.Gridlocked),
			strconv.Itoa(p.Failed),
			strconv.FormatBool(p.Skipped),
			strconv.FormatFloat(p.MeanFlow, 'g', -1, 64),
			strconv.FormatFloat(p.StdDevFlow, 'g', -1, 64),
			strconv.FormatFloat(p.StdErrFlow, 'g', -1, 64),
			strconv.FormatFloat(p.CILower, 'g', -1, 64),
			strconv.FormatFloat(p.CIUpper, 'g', -1, 64),
			strconv.FormatFloat(p.MeanVelocity, 'g', -1, 64),
			strconv.FormatFloat(p.MeanDensity, 'g', -1, 64),
			strconv.FormatFloat(p.MeanLargestJam, 'g', -1, 64),
			strconv.FormatFloat(p.ShapiroW, 'g', -1, 64),
			strconv.FormatFloat(p.ShapiroP, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: writing row for axis %v: %v", ErrIOFailure, p.AxisValue, err)
		}
	}

	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flushing %s: %v", ErrIOFailure, path, err)
	}
	return nil
}

// WriteMetadata writes meta as pretty-printed JSON to path.
func WriteMetadata(path string, meta Metadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating directory for %s: %v", ErrIOFailure, path, err)
	}

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling metadata: %v", ErrIOFailure, err)
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIOFailure, path, err)
	}
	return nil
}
