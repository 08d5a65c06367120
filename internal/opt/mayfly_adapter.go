package opt

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the Mayfly population search as a derivative-free
// baseline for the gradient-descent result.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter. popSize must be at
// least 20.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run searches the box [lower, upper]. Mayfly only takes scalar bounds, so
// the search runs on the unit cube and every candidate is mapped onto the
// per-dimension box before evaluation. A box with a non-finite bound cannot
// be mapped and yields the finite point Midpoint picks for it.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	for i := 0; i < dim; i++ {
		if !isFinite(lower[i]) || !isFinite(upper[i]) {
			slog.Warn("Mayfly needs a finite box, falling back to box centre", "dim", i, "lower", lower[i], "upper", upper[i])
			centre := Midpoint(lower, upper)
			return centre, eval(centre)
		}
	}

	toBox := func(u []float64) []float64 {
		x := make([]float64, dim)
		for i := range x {
			x[i] = lower[i] + min(max(u[i], 0), 1)*(upper[i]-lower[i])
		}
		return x
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 { return eval(toBox(u)) }
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Mayfly search failed, falling back to box centre", "error", err)
		centre := Midpoint(lower, upper)
		return centre, eval(centre)
	}

	return toBox(result.GlobalBest.Position), result.GlobalBest.Cost
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
