package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/gradual/internal/objective"
	"github.com/cwbudde/gradual/vector"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the objective catalogue",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIM\tSTART\tMINIMUM\tFORMULA")
	fmt.Fprintln(w, "----\t---\t-----\t-------\t-------")

	for _, o := range objective.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			o.Name,
			formatDim(o.Dim),
			formatPoint(o.DefaultStart),
			formatPoint(o.Minimum),
			o.Description,
		)
	}

	return w.Flush()
}

func formatDim(dim int) string {
	if dim == 0 {
		return "any"
	}
	return fmt.Sprintf("%d", dim)
}

func formatPoint(p []float64) string {
	if p == nil {
		return "-"
	}
	return vector.FromSlice(p).String()
}
