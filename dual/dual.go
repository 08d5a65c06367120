package dual

import (
	"fmt"
	"math"
)

// Dual is the dual number value+deriv·ε.
//
// Dual is an immutable value type; every operation returns a new value.
// The zero value is the constant 0.
type Dual[T Float] struct {
	value T
	deriv T
}

// New returns value+deriv·ε. Both components are always explicit: use 0
// for a constant and 1 for the variable being differentiated.
func New[T Float](value, deriv T) Dual[T] {
	return Dual[T]{value: value, deriv: deriv}
}

// Const returns v with a zero derivative.
func Const[T Float](v T) Dual[T] {
	return Dual[T]{value: v}
}

// Variable returns v seeded with derivative 1.
func Variable[T Float](v T) Dual[T] {
	return Dual[T]{value: v, deriv: 1}
}

// Real returns the real component.
func (x Dual[T]) Real() T { return x.value }

// Dual returns the derivative component.
func (x Dual[T]) Dual() T { return x.deriv }

// Value returns the real component. It satisfies Scalar.
func (x Dual[T]) Value() T { return x.value }

// Lift returns v as a constant dual number.
func (x Dual[T]) Lift(v T) Dual[T] { return Const(v) }

// String formats x as (a+bε).
func (x Dual[T]) String() string {
	return fmt.Sprintf("(%v%+vε)", x.value, x.deriv)
}

// Add returns x+y.
func (x Dual[T]) Add(y Dual[T]) Dual[T] {
	return Dual[T]{value: x.value + y.value, deriv: x.deriv + y.deriv}
}

// Sub returns x-y.
func (x Dual[T]) Sub(y Dual[T]) Dual[T] {
	return Dual[T]{value: x.value - y.value, deriv: x.deriv - y.deriv}
}

// Mul returns x·y using the product rule.
func (x Dual[T]) Mul(y Dual[T]) Dual[T] {
	return Dual[T]{
		value: x.value * y.value,
		deriv: x.deriv*y.value + x.value*y.deriv,
	}
}

// Div returns x/y using the quotient rule. A zero real part in y yields
// non-finite components.
func (x Dual[T]) Div(y Dual[T]) Dual[T] {
	denom := y.value * y.value
	return Dual[T]{
		value: x.value / y.value,
		deriv: (x.deriv*y.value - x.value*y.deriv) / denom,
	}
}

// Neg returns -x.
func (x Dual[T]) Neg() Dual[T] {
	return Dual[T]{value: -x.value, deriv: -x.deriv}
}

// AddConst returns x+c.
func (x Dual[T]) AddConst(c T) Dual[T] {
	return Dual[T]{value: x.value + c, deriv: x.deriv}
}

// SubConst returns x-c.
func (x Dual[T]) SubConst(c T) Dual[T] {
	return Dual[T]{value: x.value - c, deriv: x.deriv}
}

// MulConst returns x·c.
func (x Dual[T]) MulConst(c T) Dual[T] {
	return Dual[T]{value: x.value * c, deriv: x.deriv * c}
}

// DivConst returns x/c.
func (x Dual[T]) DivConst(c T) Dual[T] {
	return Dual[T]{value: x.value / c, deriv: x.deriv / c}
}

// RSub returns c-x.
func (x Dual[T]) RSub(c T) Dual[T] {
	return Dual[T]{value: c - x.value, deriv: -x.deriv}
}

// RDiv returns c/x.
func (x Dual[T]) RDiv(c T) Dual[T] {
	denom := x.value * x.value
	return Dual[T]{value: c / x.value, deriv: -c * x.deriv / denom}
}

// Sqrt returns √x.
//
//	sqrt(a+bε) = √a + b/(2√a)ε
func (x Dual[T]) Sqrt() Dual[T] {
	r := T(math.Sqrt(float64(x.value)))
	return Dual[T]{value: r, deriv: x.deriv / (2 * r)}
}

// Pow returns x**n for a real exponent n.
//
//	(a+bε)^n = a^n + b·n·a^(n-1)ε
func (x Dual[T]) Pow(n T) Dual[T] {
	a := float64(x.value)
	return Dual[T]{
		value: T(math.Pow(a, float64(n))),
		deriv: x.deriv * n * T(math.Pow(a, float64(n)-1)),
	}
}

// Exp returns e**x.
func (x Dual[T]) Exp() Dual[T] {
	r := T(math.Exp(float64(x.value)))
	return Dual[T]{value: r, deriv: r * x.deriv}
}

// Log returns the natural logarithm of x.
func (x Dual[T]) Log() Dual[T] {
	return Dual[T]{value: T(math.Log(float64(x.value))), deriv: x.deriv / x.value}
}

// Sin returns the sine of x.
func (x Dual[T]) Sin() Dual[T] {
	a := float64(x.value)
	return Dual[T]{value: T(math.Sin(a)), deriv: x.deriv * T(math.Cos(a))}
}

// Cos returns the cosine of x.
func (x Dual[T]) Cos() Dual[T] {
	a := float64(x.value)
	return Dual[T]{value: T(math.Cos(a)), deriv: -x.deriv * T(math.Sin(a))}
}

// Tan returns the tangent of x.
//
//	tan(a+bε) = tan(a) + b(1+tan²(a))ε
func (x Dual[T]) Tan() Dual[T] {
	r := T(math.Tan(float64(x.value)))
	return Dual[T]{value: r, deriv: x.deriv * (1 + r*r)}
}
