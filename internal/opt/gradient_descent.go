package opt

import (
	"log/slog"
	"math"

	"github.com/cwbudde/gradual/grad"
	"github.com/cwbudde/gradual/minimise"
	"github.com/cwbudde/gradual/vector"
)

// GradientDescent runs the bounded fixed-step minimiser behind the
// Optimizer interface. The gradient comes from the dual form of the
// objective; eval is only used to report the final cost.
type GradientDescent struct {
	f     grad.Func[float64]
	m     *minimise.Minimiser[float64]
	start []float64
	last  minimise.Result[float64]
}

// NewGradientDescent wraps m over the objective f. A nil start makes Run
// begin at the midpoint of the box.
func NewGradientDescent(f grad.Func[float64], m *minimise.Minimiser[float64], start []float64) *GradientDescent {
	return &GradientDescent{f: f, m: m, start: start}
}

// Run executes the minimiser. On a configuration error it logs and
// returns the starting point with its cost.
func (g *GradientDescent) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	start := g.start
	if start == nil {
		start = Midpoint(lower, upper)
	}

	res, err := g.m.MinimiseBounded(g.f, vector.FromSlice(start), vector.FromSlice(lower), vector.FromSlice(upper))
	if err != nil {
		slog.Warn("Gradient descent rejected its input", "error", err, "dim", dim)
		return start, eval(start)
	}
	g.last = res

	best := res.Point().Slice()
	return best, eval(best)
}

// Last returns the result of the most recent successful Run.
func (g *GradientDescent) Last() minimise.Result[float64] {
	return g.last
}

// Midpoint returns the centre of the box. Coordinates with an infinite
// bound fall back to 0 clamped into the box.
func Midpoint(lower, upper []float64) []float64 {
	mid := make([]float64, len(lower))
	for i := range mid {
		lo, hi := lower[i], upper[i]
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			mid[i] = max(lo, min(hi, 0))
			continue
		}
		mid[i] = lo + (hi-lo)/2
	}
	return mid
}
