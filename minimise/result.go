package minimise

import (
	"github.com/cwbudde/gradual/dual"
	"github.com/cwbudde/gradual/vector"
)

// State is the state of a minimisation run.
type State int

const (
	Running State = iota
	Converged
	MaxIterationsReached
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max_iterations_reached"
	default:
		return "unknown"
	}
}

// Result is the outcome of one minimisation run. It is created once when
// the loop exits and never modified.
type Result[T dual.Float] struct {
	point      vector.Vector[T]
	value      T
	grad       T
	iterations int
	converged  bool
}

// Point returns the final point.
func (r Result[T]) Point() vector.Vector[T] { return r.point }

// Value returns the objective value at the final point.
func (r Result[T]) Value() T { return r.value }

// Grad returns the Euclidean norm of the gradient at the final point.
func (r Result[T]) Grad() T { return r.grad }

// Iterations returns the number of updates performed.
func (r Result[T]) Iterations() int { return r.iterations }

// Converged reports whether the final gradient norm is within tolerance.
// On a bounded run this says nothing about constrained optimality: a point
// pinned to the box can be optimal while its gradient is large.
func (r Result[T]) Converged() bool { return r.converged }

// State returns Converged or MaxIterationsReached.
func (r Result[T]) State() State {
	if r.converged {
		return Converged
	}
	return MaxIterationsReached
}

// Iteration is the progress snapshot handed to an observer: Index 0 is the
// starting point, Index k the point after the k-th update.
type Iteration[T dual.Float] struct {
	Index    int
	Point    vector.Vector[T]
	Gradient vector.Vector[T]
	GradNorm T
}
