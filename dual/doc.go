// Package dual implements forward-mode automatic differentiation with dual
// numbers.
//
// A dual number a+bε carries a real value a together with a derivative
// component b, where ε² = 0. Every arithmetic operation and elementary
// function propagates the derivative component by the chain rule, so
// evaluating a function on Variable(x) yields f(x) in the real part and
// f'(x) in the dual part, exactly and without finite-difference error.
//
// Functions that should run both as plain numeric code and as
// derivative-propagating code are written once against the Scalar
// interface:
//
//	func Square[S dual.Scalar[S, T], T dual.Float](x S) S {
//	    return x.Mul(x)
//	}
//
//	Square[dual.Real[float64], float64](dual.NewReal(3.0)).Value() // 9
//	Square[dual.Dual[float64], float64](dual.Variable(3.0)).Dual()  // 6
//
// Domain errors (sqrt of a negative number, log of zero, division by a
// zero real part) are not reported as Go errors: they propagate as NaN or
// ±Inf, following IEEE 754 arithmetic.
package dual
