// Package objective holds the catalogue of named test functions used by the
// CLI and the HTTP server. Each body is written once against dual.Scalar and
// instantiated twice: with dual.Dual for gradients, with dual.Real for plain
// evaluation.
package objective

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cwbudde/gradual/dual"
	"github.com/cwbudde/gradual/grad"
)

var (
	ErrUnknownObjective  = errors.New("objective: unknown objective")
	ErrDimensionMismatch = errors.New("objective: dimension mismatch")
)

// Objective is one catalogue entry.
type Objective struct {
	Name        string
	Description string
	// Dim is the required dimension; 0 accepts any dimension >= 1.
	Dim          int
	DefaultStart []float64
	// Minimum is the known minimiser, nil when it is not known in closed form.
	Minimum []float64

	Dual grad.Func[float64]
	Eval func([]float64) float64
}

// Info is the JSON view of an Objective.
type Info struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Dim          int       `json:"dim"`
	DefaultStart []float64 `json:"defaultStart,omitempty"`
	Minimum      []float64 `json:"minimum,omitempty"`
}

// ToInfo converts o to its JSON view.
func (o *Objective) ToInfo() Info {
	return Info{
		Name:         o.Name,
		Description:  o.Description,
		Dim:          o.Dim,
		DefaultStart: o.DefaultStart,
		Minimum:      o.Minimum,
	}
}

// Start returns a copy of the default start, or the origin of dimension dim
// when the objective has none.
func (o *Objective) Start(dim int) []float64 {
	if o.DefaultStart != nil {
		return append([]float64(nil), o.DefaultStart...)
	}
	return make([]float64, dim)
}

// Check validates a requested dimension against o.
func Check(o *Objective, dim int) error {
	if dim < 1 {
		return fmt.Errorf("%w: %s needs at least one coordinate", ErrDimensionMismatch, o.Name)
	}
	if o.Dim != 0 && o.Dim != dim {
		return fmt.Errorf("%w: %s takes %d coordinates, got %d", ErrDimensionMismatch, o.Name, o.Dim, dim)
	}
	return nil
}

// entry builds an Objective from a body written against dual.Scalar.
func entry(
	name, desc string,
	dim int,
	start, minimum []float64,
	dualBody func([]dual.Dual[float64]) dual.Dual[float64],
	realBody func([]dual.Real[float64]) dual.Real[float64],
) *Objective {
	return &Objective{
		Name:         name,
		Description:  desc,
		Dim:          dim,
		DefaultStart: start,
		Minimum:      minimum,
		Dual:         dualBody,
		Eval: func(x []float64) float64 {
			return realBody(dual.Reals(x)).Value()
		},
	}
}

var catalogue = map[string]*Objective{}

func register(o *Objective) {
	if _, dup := catalogue[o.Name]; dup {
		panic("objective: duplicate name " + o.Name)
	}
	catalogue[o.Name] = o
}

// Lookup returns the objective registered under name.
func Lookup(name string) (*Objective, error) {
	o, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjective, name)
	}
	return o, nil
}

// Names returns the registered names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every objective, sorted by name.
func All() []*Objective {
	names := Names()
	out := make([]*Objective, len(names))
	for i, name := range names {
		out[i] = catalogue[name]
	}
	return out
}
