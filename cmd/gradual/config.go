package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/gradual/internal/store"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// runFlags holds the flags that shape a RunConfig. Only flags the user set
// override values loaded from a config file or a saved record.
type runFlags struct {
	objective string
	start     []float64
	lower     []float64
	upper     []float64
	step      float64
	tol       float64
	maxIters  int
	workers   int
}

func (f *runFlags) registerProblem(fs *pflag.FlagSet) {
	fs.StringVar(&f.objective, "objective", "", "Objective name (see 'gradual list')")
	fs.Float64SliceVar(&f.start, "start", nil, "Start point, comma separated (default: objective's start or origin)")
	fs.Float64SliceVar(&f.lower, "lower", nil, "Lower bounds, comma separated")
	fs.Float64SliceVar(&f.upper, "upper", nil, "Upper bounds, comma separated")
}

func (f *runFlags) registerSolver(fs *pflag.FlagSet) {
	fs.Float64Var(&f.step, "step", store.DefaultStep, "Step size")
	fs.Float64Var(&f.tol, "tol", store.DefaultGradTol, "Gradient norm tolerance")
	fs.IntVar(&f.maxIters, "max-iters", store.DefaultMaxIterations, "Maximum number of updates")
	fs.IntVar(&f.workers, "workers", 0, "Goroutines per gradient evaluation (0 or 1 = sequential)")
}

// apply copies every flag that was set on fs into cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *store.RunConfig) {
	if fs.Changed("objective") {
		cfg.Objective = f.objective
	}
	if fs.Changed("start") {
		cfg.Start = f.start
	}
	if fs.Changed("lower") {
		cfg.Lower = f.lower
	}
	if fs.Changed("upper") {
		cfg.Upper = f.upper
	}
	if fs.Changed("step") {
		cfg.Step = f.step
	}
	if fs.Changed("tol") {
		cfg.GradTol = f.tol
	}
	if fs.Changed("max-iters") {
		cfg.MaxIterations = f.maxIters
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
}

// loadRunConfig reads a YAML run config on top of the defaults. An empty
// path returns the defaults.
func loadRunConfig(path string) (store.RunConfig, error) {
	cfg := store.DefaultRunConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
