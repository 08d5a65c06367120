package store

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/gradual/minimise"
)

// Defaults applied by DefaultRunConfig.
const (
	DefaultStep          = 1e-3
	DefaultGradTol       = 1e-6
	DefaultMaxIterations = minimise.DefaultMaxIterations
)

// RunConfig holds the configuration of one minimisation run. It is shared by
// the CLI, the server and the store, which avoids import cycles between them.
type RunConfig struct {
	Objective     string    `json:"objective" yaml:"objective"`
	Start         []float64 `json:"start,omitempty" yaml:"start,omitempty"`
	Lower         []float64 `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper         []float64 `json:"upper,omitempty" yaml:"upper,omitempty"`
	Step          float64   `json:"step" yaml:"step"`
	GradTol       float64   `json:"gradTol" yaml:"gradTol"`
	MaxIterations int       `json:"maxIterations" yaml:"maxIterations"`
	Workers       int       `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// DefaultRunConfig returns a config with the default step, tolerance and
// iteration cap. Decoding JSON or YAML into it keeps the defaults for
// absent fields.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Step:          DefaultStep,
		GradTol:       DefaultGradTol,
		MaxIterations: DefaultMaxIterations,
	}
}

// Bounded reports whether the run has a box constraint.
func (c *RunConfig) Bounded() bool {
	return c.Lower != nil || c.Upper != nil
}

// Dim returns the dimension implied by the config, or 0 if neither a start
// point nor bounds are given.
func (c *RunConfig) Dim() int {
	switch {
	case len(c.Start) > 0:
		return len(c.Start)
	case len(c.Lower) > 0:
		return len(c.Lower)
	default:
		return len(c.Upper)
	}
}

// Validate checks the config for values the minimiser would reject.
func (c *RunConfig) Validate() error {
	if c.Objective == "" {
		return &ValidationError{Field: "Objective", Reason: "cannot be empty"}
	}
	if !(c.Step > 0) || math.IsInf(c.Step, 0) {
		return &ValidationError{Field: "Step", Reason: "must be positive and finite"}
	}
	if !(c.GradTol >= 0) {
		return &ValidationError{Field: "GradTol", Reason: "cannot be negative"}
	}
	if c.MaxIterations < 0 {
		return &ValidationError{Field: "MaxIterations", Reason: "cannot be negative"}
	}
	if c.Workers < 0 {
		return &ValidationError{Field: "Workers", Reason: "cannot be negative"}
	}
	if (c.Lower == nil) != (c.Upper == nil) {
		return &ValidationError{Field: "Lower/Upper", Reason: "must be given together"}
	}
	if len(c.Lower) != len(c.Upper) {
		return &ValidationError{
			Field:  "Lower/Upper",
			Reason: fmt.Sprintf("length mismatch: %d lower, %d upper", len(c.Lower), len(c.Upper)),
		}
	}
	if c.Start != nil && c.Lower != nil && len(c.Start) != len(c.Lower) {
		return &ValidationError{
			Field:  "Start",
			Reason: fmt.Sprintf("length mismatch: %d coordinates, bounds have %d", len(c.Start), len(c.Lower)),
		}
	}
	for i := range c.Lower {
		if c.Lower[i] > c.Upper[i] {
			return &ValidationError{
				Field:  "Lower",
				Reason: fmt.Sprintf("coordinate %d exceeds upper bound", i),
			}
		}
	}
	return nil
}

// RunRecord is the persisted outcome of a minimisation run.
type RunRecord struct {
	// ID is the unique identifier of the run
	ID string `json:"id"`

	// Config is the configuration the run was started with. For a resumed
	// run Config.Start is the point it resumed from.
	Config RunConfig `json:"config"`

	// Point is the final point
	Point []float64 `json:"point"`

	// Value is the objective value at Point
	Value float64 `json:"value"`

	// GradNorm is the Euclidean gradient norm at Point
	GradNorm float64 `json:"gradNorm"`

	// Iterations is the number of updates, summed over resumed segments
	Iterations int `json:"iterations"`

	Converged bool   `json:"converged"`
	State     string `json:"state"`

	// ResumedFrom is the ID of the record this run continued, if any
	ResumedFrom string `json:"resumedFrom,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// RunInfo is the listing view of a RunRecord.
type RunInfo struct {
	ID         string    `json:"id"`
	Objective  string    `json:"objective"`
	Dim        int       `json:"dim"`
	Value      float64   `json:"value"`
	GradNorm   float64   `json:"gradNorm"`
	Iterations int       `json:"iterations"`
	State      string    `json:"state"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRunRecord creates a record from a finished minimisation.
func NewRunRecord(id string, config RunConfig, res minimise.Result[float64]) *RunRecord {
	return &RunRecord{
		ID:         id,
		Config:     config,
		Point:      res.Point().Slice(),
		Value:      res.Value(),
		GradNorm:   res.Grad(),
		Iterations: res.Iterations(),
		Converged:  res.Converged(),
		State:      res.State().String(),
		Timestamp:  time.Now(),
	}
}

// ToInfo converts a full RunRecord to RunInfo (metadata only).
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		ID:         r.ID,
		Objective:  r.Config.Objective,
		Dim:        len(r.Point),
		Value:      r.Value,
		GradNorm:   r.GradNorm,
		Iterations: r.Iterations,
		State:      r.State,
		Timestamp:  r.Timestamp,
	}
}

// Validate checks if the record has valid data. Non-finite results are
// rejected since JSON cannot carry them.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if len(r.Point) == 0 {
		return &ValidationError{Field: "Point", Reason: "cannot be empty"}
	}
	for i, v := range r.Point {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: "Point", Reason: fmt.Sprintf("coordinate %d is not finite", i)}
		}
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return &ValidationError{Field: "Value", Reason: "must be finite"}
	}
	if math.IsNaN(r.GradNorm) || math.IsInf(r.GradNorm, 0) {
		return &ValidationError{Field: "GradNorm", Reason: "must be finite"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.State != minimise.Converged.String() && r.State != minimise.MaxIterationsReached.String() {
		return &ValidationError{Field: "State", Reason: fmt.Sprintf("unknown state %q", r.State)}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if err := r.Config.Validate(); err != nil {
		return err
	}
	if d := r.Config.Dim(); d != 0 && d != len(r.Point) {
		return &ValidationError{
			Field:  "Point",
			Reason: fmt.Sprintf("length mismatch: config has %d coordinates, point %d", d, len(r.Point)),
		}
	}
	return nil
}

// ValidationError represents a record or config validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this record can be resumed with the given config.
// Returns an error if the configs are incompatible.
func (r *RunRecord) IsCompatible(config RunConfig) error {
	if r.Config.Objective != config.Objective {
		return &CompatibilityError{
			Field:    "Objective",
			Expected: r.Config.Objective,
			Actual:   config.Objective,
		}
	}
	if d := config.Dim(); d != 0 && d != len(r.Point) {
		return &CompatibilityError{
			Field:    "Dim",
			Expected: fmt.Sprintf("%d", len(r.Point)),
			Actual:   fmt.Sprintf("%d", d),
		}
	}
	return nil
}

// CompatibilityError represents a resume compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
