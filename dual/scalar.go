package dual

import "golang.org/x/exp/constraints"

// Float is the set of element types a Dual or Real can carry.
type Float interface {
	constraints.Float
}

// Scalar is the algebra an objective function is written against. S is
// the implementing type itself and T its underlying floating-point type.
//
// Both Dual[T] and Real[T] satisfy Scalar[S, T], so one generic function
// body can be evaluated as plain arithmetic or with derivative propagation.
// Operations taking a T treat it as a constant with zero derivative.
// Scalar-on-the-left addition and multiplication commute and are spelled
// AddConst and MulConst; subtraction and division use RSub and RDiv.
type Scalar[S any, T Float] interface {
	Add(S) S
	Sub(S) S
	Mul(S) S
	Div(S) S
	Neg() S

	AddConst(T) S
	SubConst(T) S
	MulConst(T) S
	DivConst(T) S
	RSub(T) S
	RDiv(T) S

	Sqrt() S
	Pow(n T) S
	Exp() S
	Log() S
	Sin() S
	Cos() S
	Tan() S

	// Lift returns v as a constant of the receiver's algebra.
	Lift(v T) S
	// Value returns the real part.
	Value() T
}

// Sum returns the sum of xs, or the constant 0 for an empty slice.
func Sum[S Scalar[S, T], T Float](xs []S) S {
	var zero S
	sum := zero.Lift(0)
	for _, x := range xs {
		sum = sum.Add(x)
	}
	return sum
}

// Square returns x·x.
func Square[S Scalar[S, T], T Float](x S) S {
	return x.Mul(x)
}

// Dot returns Σ xs[i]·cs[i] for constant coefficients cs.
// It panics if the lengths differ.
func Dot[S Scalar[S, T], T Float](xs []S, cs []T) S {
	if len(xs) != len(cs) {
		panic("dual: dimension mismatch")
	}
	var zero S
	sum := zero.Lift(0)
	for i, x := range xs {
		sum = sum.Add(x.MulConst(cs[i]))
	}
	return sum
}
