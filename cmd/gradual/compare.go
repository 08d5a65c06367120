package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/gradual/internal/objective"
	"github.com/cwbudde/gradual/internal/opt"
	"github.com/cwbudde/gradual/minimise"
	"github.com/cwbudde/gradual/vector"
	"github.com/spf13/cobra"
)

var (
	compareOpts runFlags
	mayflyIters int
	popSize     int
	seed        int64
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare gradient descent with a Mayfly population search",
	Long: `Minimises an objective inside a box twice: with bounded gradient descent
and with the derivative-free Mayfly search as a global baseline. Prints the
best point and value of each, and the distance to the known minimum when
the catalogue has one.`,
	RunE: runCompare,
}

func init() {
	compareOpts.registerProblem(compareCmd.Flags())
	compareOpts.registerSolver(compareCmd.Flags())
	compareCmd.Flags().IntVar(&mayflyIters, "iters", 200, "Mayfly iterations")
	compareCmd.Flags().IntVar(&popSize, "pop", 30, "Mayfly population size")
	compareCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")

	compareCmd.MarkFlagRequired("objective")
	compareCmd.MarkFlagRequired("lower")
	compareCmd.MarkFlagRequired("upper")
	rootCmd.AddCommand(compareCmd)
}

// contender is one row of the comparison.
type contender struct {
	name string
	opt  opt.Optimizer
}

func runCompare(cmd *cobra.Command, args []string) error {
	obj, err := objective.Lookup(compareOpts.objective)
	if err != nil {
		return err
	}
	lower, upper := compareOpts.lower, compareOpts.upper
	if len(lower) != len(upper) {
		return fmt.Errorf("%w: %d lower and %d upper bounds", minimise.ErrDimensionMismatch, len(lower), len(upper))
	}
	if err := checkFiniteBox(lower, upper); err != nil {
		return err
	}
	dim := len(lower)
	if err := objective.Check(obj, dim); err != nil {
		return err
	}
	if compareOpts.start != nil && len(compareOpts.start) != dim {
		return fmt.Errorf("%w: start has %d coordinates, box has %d", minimise.ErrDimensionMismatch, len(compareOpts.start), dim)
	}

	m, err := minimise.New(compareOpts.step, compareOpts.tol,
		minimise.WithMaxIterations(compareOpts.maxIters),
		minimise.WithWorkers(compareOpts.workers),
	)
	if err != nil {
		return err
	}

	contenders := []contender{
		{"gradient-descent", opt.NewGradientDescent(obj.Dual, m, compareOpts.start)},
		{"mayfly", opt.NewMayfly(mayflyIters, popSize, seed)},
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tVALUE\tPOINT\tDISTANCE\tELAPSED")
	fmt.Fprintln(w, "------\t-----\t-----\t--------\t-------")

	for _, c := range contenders {
		start := time.Now()
		best, cost := c.opt.Run(obj.Eval, lower, upper, dim)
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%s\t%.8g\t%s\t%s\t%s\n",
			c.name,
			cost,
			vector.FromSlice(best),
			distanceTo(best, obj.Minimum),
			elapsed.Round(time.Microsecond),
		)
	}

	return w.Flush()
}

// checkFiniteBox rejects boxes the population search cannot sample: every
// bound must be finite and lower[i] <= upper[i].
func checkFiniteBox(lower, upper []float64) error {
	for i := range lower {
		lo, hi := lower[i], upper[i]
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return fmt.Errorf("%w: coordinate %d has non-finite bounds [%v, %v]", minimise.ErrInvalidBounds, i, lo, hi)
		}
		if lo > hi {
			return fmt.Errorf("%w: coordinate %d has [%v, %v]", minimise.ErrInvalidBounds, i, lo, hi)
		}
	}
	return nil
}

// distanceTo formats the Euclidean distance from p to the known minimum.
func distanceTo(p, minimum []float64) string {
	if len(minimum) != len(p) {
		return "-"
	}
	d := vector.FromSlice(p).Sub(vector.FromSlice(minimum)).Norm()
	return fmt.Sprintf("%.3g", d)
}
