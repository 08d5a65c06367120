// Package vector provides an immutable, fixed-dimension point in parameter
// space.
//
// A Vector's dimension is fixed when it is created and never changes.
// Every operation returns a new Vector; the backing storage is never
// shared with callers. Binary operations panic on a dimension mismatch,
// following the gonum floats convention.
package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// Vector is an ordered, fixed-length tuple of real numbers.
type Vector[T constraints.Float] struct {
	data []T
}

// New returns a Vector whose dimension is the number of arguments.
func New[T constraints.Float](vals ...T) Vector[T] {
	return FromSlice(vals)
}

// FromSlice returns a Vector holding a copy of s.
func FromSlice[T constraints.Float](s []T) Vector[T] {
	data := make([]T, len(s))
	copy(data, s)
	return Vector[T]{data: data}
}

// Zero returns the origin of dimension n.
func Zero[T constraints.Float](n int) Vector[T] {
	if n < 0 {
		panic("vector: negative dimension")
	}
	return Vector[T]{data: make([]T, n)}
}

// Filled returns a Vector of dimension n with every coordinate set to v.
func Filled[T constraints.Float](n int, v T) Vector[T] {
	out := Zero[T](n)
	for i := range out.data {
		out.data[i] = v
	}
	return out
}

// Generate returns a Vector of dimension n whose i-th coordinate is fn(i).
func Generate[T constraints.Float](n int, fn func(i int) T) Vector[T] {
	out := Zero[T](n)
	for i := range out.data {
		out.data[i] = fn(i)
	}
	return out
}

// Len returns the dimension.
func (v Vector[T]) Len() int { return len(v.data) }

// At returns the i-th coordinate. It panics if i is out of range.
func (v Vector[T]) At(i int) T { return v.data[i] }

// Slice returns a copy of the coordinates.
func (v Vector[T]) Slice() []T {
	out := make([]T, len(v.data))
	copy(out, v.data)
	return out
}

// With returns a copy of v with coordinate i replaced by x.
func (v Vector[T]) With(i int, x T) Vector[T] {
	out := FromSlice(v.data)
	out.data[i] = x
	return out
}

// Add returns v+w.
func (v Vector[T]) Add(w Vector[T]) Vector[T] {
	mustMatch(v, w)
	return Generate(len(v.data), func(i int) T { return v.data[i] + w.data[i] })
}

// Sub returns v-w.
func (v Vector[T]) Sub(w Vector[T]) Vector[T] {
	mustMatch(v, w)
	return Generate(len(v.data), func(i int) T { return v.data[i] - w.data[i] })
}

// Scale returns c·v.
func (v Vector[T]) Scale(c T) Vector[T] {
	return Generate(len(v.data), func(i int) T { return v.data[i] * c })
}

// DivScalar returns v/c.
func (v Vector[T]) DivScalar(c T) Vector[T] {
	return Generate(len(v.data), func(i int) T { return v.data[i] / c })
}

// Dot returns the inner product of v and w.
func (v Vector[T]) Dot(w Vector[T]) T {
	mustMatch(v, w)
	var sum T
	for i, x := range v.data {
		sum += x * w.data[i]
	}
	return sum
}

// Norm2 returns the squared Euclidean norm.
func (v Vector[T]) Norm2() T {
	var sum T
	for _, x := range v.data {
		sum += x * x
	}
	return sum
}

// Norm returns the Euclidean norm.
func (v Vector[T]) Norm() T {
	if f, ok := any(v.data).([]float64); ok {
		return T(floats.Norm(f, 2))
	}
	return T(math.Sqrt(float64(v.Norm2())))
}

// IsFinite reports whether every coordinate is neither NaN nor ±Inf.
func (v Vector[T]) IsFinite() bool {
	for _, x := range v.data {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// String formats v as (x0, x1, ...).
func (v Vector[T]) String() string {
	parts := make([]string, len(v.data))
	for i, x := range v.data {
		parts[i] = fmt.Sprint(x)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// MarshalJSON encodes v as a JSON array of numbers.
func (v Vector[T]) MarshalJSON() ([]byte, error) {
	if v.data == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.data)
}

// UnmarshalJSON decodes a JSON array of numbers. The dimension is the
// length of the array.
func (v *Vector[T]) UnmarshalJSON(b []byte) error {
	var data []T
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("failed to decode vector: %w", err)
	}
	v.data = data
	return nil
}

func mustMatch[T constraints.Float](v, w Vector[T]) {
	if len(v.data) != len(w.data) {
		panic("vector: dimension mismatch")
	}
}
