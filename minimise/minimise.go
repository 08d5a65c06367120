// Package minimise implements fixed-step gradient descent on top of the
// forward-mode gradients of package grad.
//
// Each iteration moves every coordinate against its partial derivative by
// a constant step and clamps it into the box [lower, upper]:
//
//	x[i] = clamp(x[i] - step·∇f(x)[i], lower[i], upper[i])
//
// The loop stops as soon as the Euclidean norm of the gradient drops to the
// tolerance, or after the configured number of updates. There is no line
// search, momentum or step adaptation.
package minimise

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/gradual/dual"
	"github.com/cwbudde/gradual/grad"
	"github.com/cwbudde/gradual/vector"
)

// DefaultMaxIterations is the update cap used when WithMaxIterations is not
// given.
const DefaultMaxIterations = 10000

// Minimiser holds an immutable gradient-descent configuration. It carries
// no run state and may be shared between goroutines.
type Minimiser[T dual.Float] struct {
	step          T
	gradTol       T
	maxIterations int
	workers       int
	observer      func(Iteration[T])
}

type options struct {
	maxIterations int
	workers       int
}

// Option configures a Minimiser.
type Option func(*options)

// WithMaxIterations sets the hard cap on updates. Zero is allowed: the run
// then evaluates the starting point and stops without updating it.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithWorkers evaluates the probes of each gradient on up to n goroutines.
// n <= 1 keeps evaluation sequential.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// New returns a Minimiser with a fixed step (learning rate) and a
// convergence threshold on the Euclidean gradient norm.
func New[T dual.Float](step, gradTol T, opts ...Option) (*Minimiser[T], error) {
	o := options{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&o)
	}

	if !(step > 0) || math.IsInf(float64(step), 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidStep, step)
	}
	if !(gradTol >= 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidTolerance, gradTol)
	}
	if o.maxIterations < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxIterations, o.maxIterations)
	}

	return &Minimiser[T]{
		step:          step,
		gradTol:       gradTol,
		maxIterations: o.maxIterations,
		workers:       o.workers,
	}, nil
}

// WithObserver returns a copy of m that hands fn an Iteration for the
// starting point and after every update. fn runs synchronously on the
// minimising goroutine. A nil fn removes the observer. m is not modified.
func (m *Minimiser[T]) WithObserver(fn func(Iteration[T])) *Minimiser[T] {
	c := *m
	c.observer = fn
	return &c
}

// Step returns the learning rate.
func (m *Minimiser[T]) Step() T { return m.step }

// GradTol returns the convergence threshold.
func (m *Minimiser[T]) GradTol() T { return m.gradTol }

// MaxIterations returns the update cap.
func (m *Minimiser[T]) MaxIterations() int { return m.maxIterations }

// Minimise runs unbounded gradient descent from start.
func (m *Minimiser[T]) Minimise(f grad.Func[T], start vector.Vector[T]) (Result[T], error) {
	n := start.Len()
	return m.MinimiseBounded(f, start,
		vector.Filled(n, T(math.Inf(-1))),
		vector.Filled(n, T(math.Inf(1))))
}

// MinimiseFromZero runs unbounded gradient descent from the origin of
// dimension dim.
func (m *Minimiser[T]) MinimiseFromZero(f grad.Func[T], dim int) (Result[T], error) {
	if dim < 1 {
		return Result[T]{}, fmt.Errorf("%w: dimension %d", ErrDimensionMismatch, dim)
	}
	return m.Minimise(f, vector.Zero[T](dim))
}

// MinimiseFromZeroBounded runs bounded gradient descent from the origin; the
// dimension is taken from the bounds.
func (m *Minimiser[T]) MinimiseFromZeroBounded(f grad.Func[T], lower, upper vector.Vector[T]) (Result[T], error) {
	return m.MinimiseBounded(f, vector.Zero[T](lower.Len()), lower, upper)
}

// MinimiseBounded runs gradient descent from start, clamping every update
// into [lower, upper]. The start point itself is not clamped; it enters the
// box with the first update.
//
// It returns ErrDimensionMismatch if start, lower and upper differ in
// length or are empty, and ErrInvalidBounds if lower[i] > upper[i] or a
// bound is NaN. Numeric trouble inside f is not an error: it shows up as
// non-finite values in the Result.
func (m *Minimiser[T]) MinimiseBounded(f grad.Func[T], start, lower, upper vector.Vector[T]) (Result[T], error) {
	if err := checkBox(start, lower, upper); err != nil {
		return Result[T]{}, err
	}
	return m.run(f, start, lower, upper), nil
}

func (m *Minimiser[T]) run(f grad.Func[T], start, lower, upper vector.Vector[T]) Result[T] {
	n := start.Len()
	slog.Debug("Starting minimisation",
		"dim", n,
		"step", float64(m.step),
		"grad_tol", float64(m.gradTol),
		"max_iterations", m.maxIterations,
	)

	iterations := 0
	point := start
	g := m.gradient(f, point)
	gradNorm := g.Norm()
	m.notify(iterations, point, g, gradNorm)

	for gradNorm > m.gradTol && iterations < m.maxIterations {
		iterations++

		prev, prevGrad := point, g
		point = vector.Generate(n, func(i int) T {
			return clamp(prev.At(i)-m.step*prevGrad.At(i), lower.At(i), upper.At(i))
		})

		g = m.gradient(f, point)
		gradNorm = g.Norm()
		m.notify(iterations, point, g, gradNorm)

		if gradNorm <= m.gradTol || iterations >= m.maxIterations {
			break
		}
	}

	res := Result[T]{
		point:      point,
		value:      grad.Value(f, point),
		grad:       gradNorm,
		iterations: iterations,
		converged:  gradNorm <= m.gradTol,
	}

	slog.Debug("Minimisation finished",
		"state", res.State().String(),
		"iterations", res.iterations,
		"grad_norm", float64(res.grad),
		"value", float64(res.value),
	)
	return res
}

func (m *Minimiser[T]) gradient(f grad.Func[T], point vector.Vector[T]) vector.Vector[T] {
	if m.workers > 1 {
		return grad.GradientConcurrent(f, point, m.workers)
	}
	return grad.Gradient(f, point)
}

func (m *Minimiser[T]) notify(index int, point, g vector.Vector[T], gradNorm T) {
	if m.observer == nil {
		return
	}
	m.observer(Iteration[T]{Index: index, Point: point, Gradient: g, GradNorm: gradNorm})
}

func checkBox[T dual.Float](start, lower, upper vector.Vector[T]) error {
	n := start.Len()
	if n == 0 {
		return fmt.Errorf("%w: empty start point", ErrDimensionMismatch)
	}
	if lower.Len() != n || upper.Len() != n {
		return fmt.Errorf("%w: start has %d coordinates, lower %d, upper %d",
			ErrDimensionMismatch, n, lower.Len(), upper.Len())
	}
	for i := range n {
		lo, hi := lower.At(i), upper.At(i)
		if lo != lo || hi != hi || lo > hi {
			return fmt.Errorf("%w: coordinate %d has [%v, %v]", ErrInvalidBounds, i, lo, hi)
		}
	}
	return nil
}

func clamp[T dual.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
