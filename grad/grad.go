// Package grad evaluates gradients of scalar functions with forward-mode
// dual arithmetic.
//
// The gradient of f at a point of dimension N is assembled from N
// independent evaluations of f. Evaluation i receives a probe point whose
// i-th coordinate carries derivative 1 and every other coordinate
// derivative 0, so the derivative component of the result is exactly
// ∂f/∂xᵢ. Nothing is cached between calls: the result depends only on f
// and the point.
package grad

import (
	"runtime"

	"github.com/cwbudde/gradual/dual"
	"github.com/cwbudde/gradual/vector"
	"golang.org/x/sync/errgroup"
)

// Func is an objective function over dual numbers. The slice holds one
// argument per dimension. A Func must be pure and reentrant: it may be
// invoked concurrently and more than once per gradient.
//
// Functions written against dual.Scalar are converted by instantiation:
//
//	var f grad.Func[float64] = sphere[dual.Dual[float64], float64]
type Func[T dual.Float] func(x []dual.Dual[T]) dual.Dual[T]

// Probe returns the dual basis point for coordinate i: coordinate j is
// (point[j], 1) when j == i and (point[j], 0) otherwise.
func Probe[T dual.Float](point vector.Vector[T], i int) []dual.Dual[T] {
	if i < 0 || i >= point.Len() {
		panic("grad: probe index out of range")
	}
	probe := make([]dual.Dual[T], point.Len())
	for j := range probe {
		var seed T
		if j == i {
			seed = 1
		}
		probe[j] = dual.New(point.At(j), seed)
	}
	return probe
}

// Partial returns ∂f/∂xᵢ at point.
func Partial[T dual.Float](f Func[T], point vector.Vector[T], i int) T {
	return f(Probe(point, i)).Dual()
}

// Gradient returns the vector of partial derivatives of f at point,
// evaluating the probes sequentially in coordinate order.
func Gradient[T dual.Float](f Func[T], point vector.Vector[T]) vector.Vector[T] {
	return vector.Generate(point.Len(), func(i int) T {
		return Partial(f, point, i)
	})
}

// GradientConcurrent is Gradient with the probes spread over at most
// workers goroutines. Each probe writes its own slot, so the result is
// identical to Gradient. workers <= 0 selects runtime.NumCPU().
func GradientConcurrent[T dual.Float](f Func[T], point vector.Vector[T], workers int) vector.Vector[T] {
	n := point.Len()
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 || n < 2 {
		return Gradient(f, point)
	}

	out := make([]T, n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			out[i] = Partial(f, point, i)
			return nil
		})
	}
	// Probes never fail; Wait only joins.
	_ = g.Wait()

	return vector.FromSlice(out)
}

// Value evaluates f at point with constant (zero-derivative) arguments and
// returns the real part.
func Value[T dual.Float](f Func[T], point vector.Vector[T]) T {
	return f(dual.Consts(point.Slice())).Real()
}

// Plain adapts f to an ordinary numeric callback.
func Plain[T dual.Float](f Func[T]) func([]T) T {
	return func(x []T) T {
		return f(dual.Consts(x)).Real()
	}
}
