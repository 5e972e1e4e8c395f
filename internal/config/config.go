// Package config loads a sweep definition from YAML, using the same
// two-stage viper-then-yaml.v3 unmarshal as the rest of this family of
// tools: an outer envelope picks a kind, then the inner document is
// re-marshaled and unmarshaled into a concretely typed struct.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrBadConfig is returned by Validate when a sweep definition is
// internally inconsistent or out of range.
var ErrBadConfig = errors.New("config: invalid sweep definition")

// OuterConfig is the envelope every config file is wrapped in; Def holds
// the untyped YAML node for whichever Kind names.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Axis selects which parameter a sweep varies while holding the rest of
// the lattice fixed. Density is never one of these: every axis value is
// always crossed with the full density grid (DensityValues) as its own,
// always-present secondary dimension.
type Axis string

const (
	AxisRoadLength Axis = "road_length"
	AxisMaxSpeed   Axis = "max_speed"
	AxisCompliance Axis = "compliance_pct"
)

// Discipline mirrors car.Discipline as a YAML-friendly string so config
// files don't need to know the package's integer encoding.
type Discipline string

const (
	FreeMovement     Discipline = "free_movement"
	FixedDestination Discipline = "fixed_destination"
)

// SweepConfig is the full definition of a parameter-sweep experiment: the
// fixed lattice geometry, the varying axis and its values, the discipline
// under test, and the run/replicate/statistics knobs.
type SweepConfig struct {
	LatticeSize   int        `mapstructure:"latticeSize" yaml:"latticeSize"`
	BlockSize     int        `mapstructure:"blockSize" yaml:"blockSize"`
	MaxSpeed      int        `mapstructure:"maxSpeed" yaml:"maxSpeed"`
	Discipline    Discipline `mapstructure:"discipline" yaml:"discipline"`
	CompliancePct int        `mapstructure:"compliancePct" yaml:"compliancePct"`
	Axis          Axis       `mapstructure:"axis" yaml:"axis"`
	AxisValues    []float64  `mapstructure:"axisValues" yaml:"axisValues"`
	// DensityValues is the secondary sweep dimension, always crossed with
	// every AxisValues entry: one replicate batch runs per (axis value,
	// density) pair. Processed in ascending order per density-axis
	// early-termination (once every replicate at a density gridlocks, all
	// higher densities for that axis value are skipped).
	DensityValues  []float64  `mapstructure:"densityValues" yaml:"densityValues"`
	Steps          int        `mapstructure:"steps" yaml:"steps"`
	WarmupFraction float64    `mapstructure:"warmupFraction" yaml:"warmupFraction"`
	// SteadyStateFraction bounds the trailing window averaged into a
	// replicate's steady-state metrics: the last SteadyStateFraction*Steps
	// ticks, but never reaching back before WarmupFraction*Steps.
	SteadyStateFraction float64 `mapstructure:"steadyStateFraction" yaml:"steadyStateFraction"`
	Replicates          int     `mapstructure:"replicates" yaml:"replicates"`
	BaseSeed            int64   `mapstructure:"baseSeed" yaml:"baseSeed"`
	GridlockStreak      int     `mapstructure:"gridlockStreak" yaml:"gridlockStreak"`
	CheckNormality      bool    `mapstructure:"checkNormality" yaml:"checkNormality"`
	NWorkers            int     `mapstructure:"nworkers" yaml:"nworkers"`
	OutputDir           string  `mapstructure:"outputDir" yaml:"outputDir"`
}

// FromYaml loads a SweepConfig the way this codebase always has: viper
// reads the file into an OuterConfig, the Def node is re-marshaled to
// bytes, and those bytes are unmarshaled into the concrete inner type.
func FromYaml(path string) (*SweepConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	outer := &OuterConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("config: unmarshaling envelope: %w", err)
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, fmt.Errorf("config: re-marshaling def: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling sweep config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a SweepConfig with the same conservative defaults the
// original command-line tool this was distilled from used, so a config
// file only needs to name what it wants to vary.
func defaults() *SweepConfig {
	return &SweepConfig{
		LatticeSize:         100,
		BlockSize:           10,
		MaxSpeed:            5,
		Discipline:          FreeMovement,
		CompliancePct:       100,
		Axis:                AxisRoadLength,
		AxisValues:          []float64{10},
		DensityValues:       []float64{0.1},
		Steps:               1000,
		WarmupFraction:      0.2,
		SteadyStateFraction: 1.0,
		Replicates:          10,
		BaseSeed:            1,
		GridlockStreak:      50,
		NWorkers:            4,
		OutputDir:           "./results",
	}
}

// Validate checks a SweepConfig for internally consistent, runnable
// values. It does not check grid.Build's geometry preconditions directly
// (that's grid.Build's job at run time) but does reject values that can
// never produce a runnable sweep.
func Validate(cfg *SweepConfig) error {
	if cfg.LatticeSize < 10 {
		return fmt.Errorf("%w: latticeSize %d must be >= 10", ErrBadConfig, cfg.LatticeSize)
	}
	if cfg.BlockSize < 4 || cfg.BlockSize%2 != 0 {
		return fmt.Errorf("%w: blockSize %d must be even and >= 4", ErrBadConfig, cfg.BlockSize)
	}
	if cfg.MaxSpeed < 1 {
		return fmt.Errorf("%w: maxSpeed %d must be >= 1", ErrBadConfig, cfg.MaxSpeed)
	}
	if cfg.Discipline != FreeMovement && cfg.Discipline != FixedDestination {
		return fmt.Errorf("%w: unknown discipline %q", ErrBadConfig, cfg.Discipline)
	}
	if cfg.Axis != AxisRoadLength && cfg.Axis != AxisMaxSpeed && cfg.Axis != AxisCompliance {
		return fmt.Errorf("%w: unknown axis %q", ErrBadConfig, cfg.Axis)
	}
	if cfg.CompliancePct < 0 || cfg.CompliancePct > 100 {
		return fmt.Errorf("%w: compliancePct %d must be in [0, 100]", ErrBadConfig, cfg.CompliancePct)
	}
	if len(cfg.AxisValues) == 0 {
		return fmt.Errorf("%w: axisValues must not be empty", ErrBadConfig)
	}
	if len(cfg.DensityValues) == 0 {
		return fmt.Errorf("%w: densityValues must not be empty", ErrBadConfig)
	}
	for _, d := range cfg.DensityValues {
		if d < 0 || d > 1 {
			return fmt.Errorf("%w: density %v must be in [0, 1]", ErrBadConfig, d)
		}
	}
	if cfg.Steps < 1 {
		return fmt.Errorf("%w: steps %d must be >= 1", ErrBadConfig, cfg.Steps)
	}
	if cfg.WarmupFraction < 0 || cfg.WarmupFraction >= 1 {
		return fmt.Errorf("%w: warmupFraction %f must be in [0, 1)", ErrBadConfig, cfg.WarmupFraction)
	}
	if cfg.SteadyStateFraction <= 0 || cfg.SteadyStateFraction > 1 {
		return fmt.Errorf("%w: steadyStateFraction %f must be in (0, 1]", ErrBadConfig, cfg.SteadyStateFraction)
	}
	if cfg.Replicates < 1 {
		return fmt.Errorf("%w: replicates %d must be >= 1", ErrBadConfig, cfg.Replicates)
	}
	if cfg.GridlockStreak < 1 {
		return fmt.Errorf("%w: gridlockStreak %d must be >= 1", ErrBadConfig, cfg.GridlockStreak)
	}
	if cfg.NWorkers < 1 {
		return fmt.Errorf("%w: nworkers %d must be >= 1", ErrBadConfig, cfg.NWorkers)
	}
	return nil
}
