package objective

import (
	"github.com/cwbudde/gradual/dual"
)

type (
	dd = dual.Dual[float64]
	rr = dual.Real[float64]
)

func init() {
	register(entry("sphere", "Σ xᵢ²", 0, nil, nil,
		sphere[dd, float64], sphere[rr, float64]))
	register(entry("bowl", "(x-1)² + (y-2)² + (z-5)²", 3,
		[]float64{10, -5, 3}, []float64{1, 2, 5},
		bowl[dd, float64], bowl[rr, float64]))
	register(entry("rosenbrock", "(1-x)² + 100(y-x²)²", 2,
		[]float64{-1, 1}, []float64{1, 1},
		rosenbrock[dd, float64], rosenbrock[rr, float64]))
	register(entry("wave", "Σ exp(xᵢ) + sin(xᵢ) + 0.1xᵢ²", 0,
		[]float64{0.5, 1, -0.5}, nil,
		wave[dd, float64], wave[rr, float64]))
	register(entry("quadfit", "least squares of a·x² + b·x + c over five samples", 3,
		nil, []float64{2, -3, 1},
		quadfit[dd, float64], quadfit[rr, float64]))
	register(entry("wall", "(x-10)²", 1,
		[]float64{0}, []float64{10},
		wall[dd, float64], wall[rr, float64]))
}

func sphere[S dual.Scalar[S, T], T dual.Float](x []S) S {
	sq := make([]S, len(x))
	for i, v := range x {
		sq[i] = dual.Square[S, T](v)
	}
	return dual.Sum[S, T](sq)
}

func bowl[S dual.Scalar[S, T], T dual.Float](x []S) S {
	return x[0].SubConst(1).Pow(2).
		Add(x[1].SubConst(2).Pow(2)).
		Add(x[2].SubConst(5).Pow(2))
}

func rosenbrock[S dual.Scalar[S, T], T dual.Float](x []S) S {
	a := x[0].RSub(1)
	b := x[1].Sub(x[0].Mul(x[0]))
	return a.Mul(a).Add(b.Mul(b).MulConst(100))
}

func wave[S dual.Scalar[S, T], T dual.Float](x []S) S {
	terms := make([]S, len(x))
	for i, v := range x {
		terms[i] = v.Exp().Add(v.Sin()).Add(v.Mul(v).MulConst(0.1))
	}
	return dual.Sum[S, T](terms)
}

var (
	quadfitX = []float64{0, 1, 2, 3, 4}
	quadfitY = []float64{1, 0, 3, 10, 21}
)

// quadfit is the squared error of y = a·x² + b·x + c over the sample points;
// the data lie exactly on 2x² - 3x + 1.
func quadfit[S dual.Scalar[S, T], T dual.Float](p []S) S {
	residuals := make([]S, len(quadfitX))
	for i, xi := range quadfitX {
		x := T(xi)
		r := dual.Dot[S, T](p, []T{x * x, x, 1}).SubConst(T(quadfitY[i]))
		residuals[i] = dual.Square[S, T](r)
	}
	return dual.Sum[S, T](residuals)
}

func wall[S dual.Scalar[S, T], T dual.Float](x []S) S {
	return dual.Square[S, T](x[0].SubConst(10))
}
