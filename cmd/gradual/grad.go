package main

import (
	"fmt"

	"github.com/cwbudde/gradual/grad"
	"github.com/cwbudde/gradual/internal/objective"
	"github.com/cwbudde/gradual/vector"
	"github.com/spf13/cobra"
)

var (
	gradObjective string
	gradAt        []float64
)

var gradCmd = &cobra.Command{
	Use:   "grad",
	Short: "Evaluate an objective and its gradient at a point",
	RunE:  runGrad,
}

func init() {
	gradCmd.Flags().StringVar(&gradObjective, "objective", "", "Objective name (required)")
	gradCmd.Flags().Float64SliceVar(&gradAt, "at", nil, "Point, comma separated (default: objective's start)")

	gradCmd.MarkFlagRequired("objective")
	rootCmd.AddCommand(gradCmd)
}

func runGrad(cmd *cobra.Command, args []string) error {
	obj, err := objective.Lookup(gradObjective)
	if err != nil {
		return err
	}

	at := gradAt
	if at == nil {
		at = obj.Start(obj.Dim)
	}
	if len(at) == 0 {
		return fmt.Errorf("objective %s has no default point: use --at", obj.Name)
	}
	if err := objective.Check(obj, len(at)); err != nil {
		return err
	}

	pt := vector.FromSlice(at)
	g := grad.Gradient(obj.Dual, pt)

	fmt.Printf("Point:     %s\n", pt)
	fmt.Printf("Value:     %.10g\n", grad.Value(obj.Dual, pt))
	fmt.Printf("Gradient:  %s\n", g)
	fmt.Printf("Norm:      %.10g\n", g.Norm())
	return nil
}
