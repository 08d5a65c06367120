package dual

import (
	"math"
	"strconv"
)

// Real is a plain floating-point number that satisfies Scalar. It lets an
// objective written against Scalar run without derivative bookkeeping.
type Real[T Float] struct {
	v T
}

// NewReal wraps v.
func NewReal[T Float](v T) Real[T] { return Real[T]{v: v} }

// Reals wraps every element of xs.
func Reals[T Float](xs []T) []Real[T] {
	out := make([]Real[T], len(xs))
	for i, x := range xs {
		out[i] = Real[T]{v: x}
	}
	return out
}

// Consts lifts every element of xs to a constant dual number.
func Consts[T Float](xs []T) []Dual[T] {
	out := make([]Dual[T], len(xs))
	for i, x := range xs {
		out[i] = Const(x)
	}
	return out
}

func (x Real[T]) Value() T        { return x.v }
func (x Real[T]) Lift(v T) Real[T] { return Real[T]{v: v} }

func (x Real[T]) String() string {
	return strconv.FormatFloat(float64(x.v), 'g', -1, 64)
}

func (x Real[T]) Add(y Real[T]) Real[T] { return Real[T]{v: x.v + y.v} }
func (x Real[T]) Sub(y Real[T]) Real[T] { return Real[T]{v: x.v - y.v} }
func (x Real[T]) Mul(y Real[T]) Real[T] { return Real[T]{v: x.v * y.v} }
func (x Real[T]) Div(y Real[T]) Real[T] { return Real[T]{v: x.v / y.v} }
func (x Real[T]) Neg() Real[T]          { return Real[T]{v: -x.v} }

func (x Real[T]) AddConst(c T) Real[T] { return Real[T]{v: x.v + c} }
func (x Real[T]) SubConst(c T) Real[T] { return Real[T]{v: x.v - c} }
func (x Real[T]) MulConst(c T) Real[T] { return Real[T]{v: x.v * c} }
func (x Real[T]) DivConst(c T) Real[T] { return Real[T]{v: x.v / c} }
func (x Real[T]) RSub(c T) Real[T]     { return Real[T]{v: c - x.v} }
func (x Real[T]) RDiv(c T) Real[T]     { return Real[T]{v: c / x.v} }

func (x Real[T]) Sqrt() Real[T] { return Real[T]{v: T(math.Sqrt(float64(x.v)))} }
func (x Real[T]) Exp() Real[T]  { return Real[T]{v: T(math.Exp(float64(x.v)))} }
func (x Real[T]) Log() Real[T]  { return Real[T]{v: T(math.Log(float64(x.v)))} }
func (x Real[T]) Sin() Real[T]  { return Real[T]{v: T(math.Sin(float64(x.v)))} }
func (x Real[T]) Cos() Real[T]  { return Real[T]{v: T(math.Cos(float64(x.v)))} }
func (x Real[T]) Tan() Real[T]  { return Real[T]{v: T(math.Tan(float64(x.v)))} }

func (x Real[T]) Pow(n T) Real[T] {
	return Real[T]{v: T(math.Pow(float64(x.v), float64(n)))}
}
