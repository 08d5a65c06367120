// Package runner turns a store.RunConfig into a configured minimisation:
// it resolves the objective, the start point and the box, and builds the
// minimiser. The CLI and the HTTP worker both run through it.
package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/gradual/internal/objective"
	"github.com/cwbudde/gradual/internal/store"
	"github.com/cwbudde/gradual/minimise"
	"github.com/cwbudde/gradual/vector"
)

// ErrDimensionRequired is returned when neither the config nor the
// objective fixes the dimension.
var ErrDimensionRequired = errors.New("runner: dimension required: give a start point or bounds")

// Observer receives minimiser progress.
type Observer = func(minimise.Iteration[float64])

// Plan is a resolved run, ready to execute.
type Plan struct {
	Config    store.RunConfig
	Objective *objective.Objective
	Start     vector.Vector[float64]
	Lower     vector.Vector[float64]
	Upper     vector.Vector[float64]

	minimiser *minimise.Minimiser[float64]
}

// NewPlan validates cfg and resolves it against the objective catalogue.
// Every observer is called, in order, for each iteration.
func NewPlan(cfg store.RunConfig, observers ...Observer) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	obj, err := objective.Lookup(cfg.Objective)
	if err != nil {
		return nil, err
	}

	dim := cfg.Dim()
	if dim == 0 {
		dim = obj.Dim
	}
	if dim == 0 && obj.DefaultStart != nil {
		dim = len(obj.DefaultStart)
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w (objective %s)", ErrDimensionRequired, obj.Name)
	}
	if err := objective.Check(obj, dim); err != nil {
		return nil, err
	}

	start := cfg.Start
	if start == nil {
		if obj.DefaultStart != nil && len(obj.DefaultStart) == dim {
			start = obj.Start(dim)
		} else {
			start = make([]float64, dim)
		}
	}

	lower, upper := cfg.Lower, cfg.Upper
	if !cfg.Bounded() {
		lower = vector.Filled(dim, math.Inf(-1)).Slice()
		upper = vector.Filled(dim, math.Inf(1)).Slice()
	}

	m, err := minimise.New(cfg.Step, cfg.GradTol,
		minimise.WithMaxIterations(cfg.MaxIterations),
		minimise.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, fmt.Errorf("failed to create minimiser: %w", err)
	}
	if len(observers) > 0 {
		m = m.WithObserver(fanOut(observers))
	}

	cfg.Start = start
	return &Plan{
		Config:    cfg,
		Objective: obj,
		Start:     vector.FromSlice(start),
		Lower:     vector.FromSlice(lower),
		Upper:     vector.FromSlice(upper),
		minimiser: m,
	}, nil
}

// Run executes the plan.
func (p *Plan) Run() (minimise.Result[float64], error) {
	slog.Info("Starting run",
		"objective", p.Objective.Name,
		"dim", p.Start.Len(),
		"bounded", p.Config.Bounded(),
		"step", p.Config.Step,
		"grad_tol", p.Config.GradTol,
	)

	res, err := p.minimiser.MinimiseBounded(p.Objective.Dual, p.Start, p.Lower, p.Upper)
	if err != nil {
		return res, fmt.Errorf("failed to minimise %s: %w", p.Objective.Name, err)
	}

	slog.Info("Run finished",
		"objective", p.Objective.Name,
		"state", res.State().String(),
		"iterations", res.Iterations(),
		"grad_norm", res.Grad(),
		"value", res.Value(),
	)
	return res, nil
}

func fanOut(observers []Observer) Observer {
	if len(observers) == 1 {
		return observers[0]
	}
	return func(it minimise.Iteration[float64]) {
		for _, o := range observers {
			o(it)
		}
	}
}
