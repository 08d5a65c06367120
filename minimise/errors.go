package minimise

import "errors"

// Sentinel errors for the minimise package.
// Use errors.Is to check: errors.Is(err, minimise.ErrInvalidBounds)
var (
	ErrInvalidStep          = errors.New("minimise: step must be positive and finite")
	ErrInvalidTolerance     = errors.New("minimise: gradient tolerance must be non-negative")
	ErrInvalidMaxIterations = errors.New("minimise: max iterations must be non-negative")
	ErrDimensionMismatch    = errors.New("minimise: dimension mismatch")
	ErrInvalidBounds        = errors.New("minimise: lower bound exceeds upper bound")
)
