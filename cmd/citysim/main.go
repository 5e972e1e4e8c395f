package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"citysim/internal/config"
	"citysim/internal/experiment"
	"citysim/internal/results"
	"citysim/internal/viewer"
)

var (
	configPath *string
	nworkers   *int
	serve      *bool
	addr       *string
	outDir     *string
	debug      *bool
)

func init() {
	configPath = flag.String("config", "./sweep.yaml", "path to the sweep config file")
	nworkers = flag.Int("nworkers", runtime.NumCPU(), "number of replicate worker routines, overrides config nworkers")
	serve = flag.Bool("serve", false, "serve /healthz and /ws during the sweep (/ws answers 501: live updates are not wired to the sweep)")
	addr = flag.String("addr", ":8080", "address to serve the live metrics view on")
	outDir = flag.String("out", "", "directory to write sweep.csv and sweep.meta.json to, overrides config outputDir")
	debug = flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()
}

func outputDir(cfg *config.SweepConfig) string {
	if *outDir != "" {
		return *outDir
	}
	if dir := os.Getenv("OUTPUT_DIR"); dir != "" {
		return dir
	}
	return cfg.OutputDir
}

func runApp() error {
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		return err
	}
	if *nworkers > 0 {
		cfg.NWorkers = *nworkers
	}
	if *debug {
		fmt.Printf("debug: loaded config from %s: axis=%s axisValues=%v densityValues=%v replicates=%d nworkers=%d\n",
			*configPath, cfg.Axis, cfg.AxisValues, cfg.DensityValues, cfg.Replicates, cfg.NWorkers)
	}

	if *serve {
		go serveViewer(*addr)
	}

	report, err := experiment.Run(context.Background(), cfg)
	if err != nil {
		return err
	}
	if *debug {
		fmt.Printf("debug: sweep produced %d points\n", len(report.Points))
	}

	dir := outputDir(cfg)
	if err := results.WriteCSV(dir+"/sweep.csv", report); err != nil {
		return err
	}

	meta := results.Metadata{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		AxisName:    string(cfg.Axis),
		StatMethod:  "student-t",
		Completed:   report.Completed,
		Skipped:     report.Skipped,
		Failed:      report.Failed,
	}
	if err := results.WriteMetadata(dir+"/sweep.meta.json", meta); err != nil {
		return err
	}

	fmt.Printf("sweep complete: %d completed, %d skipped, %d failed\n", report.Completed, report.Skipped, report.Failed)
	for _, p := range report.Points {
		if p.Skipped {
			fmt.Printf("  axis=%v density=%v: skipped\n", p.AxisValue, p.Density)
			continue
		}
		fmt.Printf("  axis=%v density=%v: flow=%.4f (95%% CI [%.4f, %.4f]) gridlocked=%d failed=%d /%d\n",
			p.AxisValue, p.Density, p.MeanFlow, p.CILower, p.CIUpper, p.Gridlocked, p.Failed, p.Replicates)
	}

	return nil
}

// serveViewer serves the viewer router in the background for the duration
// of the sweep: /healthz answers 200, and /ws answers 501 Not Implemented
// because no live updates are wired to this sweep run. A failure to serve
// never aborts the sweep itself.
func serveViewer(addr string) {
	router := viewer.NewRouter(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "live updates not wired to this sweep run", http.StatusNotImplemented)
	})
	if err := http.ListenAndServe(addr, router); err != nil {
		fmt.Println("viewer: ", err)
	}
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
