package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/gradual/internal/runner"
	"github.com/cwbudde/gradual/internal/store"
	"github.com/cwbudde/gradual/minimise"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runOpts     runFlags
	configPath  string
	saveRun     bool
	dataDir     string
	traceEvery  int
	tracePoints bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Minimise an objective with fixed-step gradient descent",
	Long: `Runs gradient descent on a catalogue objective and prints the final point,
value and gradient norm. Settings come from --config, with flags that were
set taking precedence. With --save the result and an iteration trace are
written to --data-dir.`,
	RunE: runMinimise,
}

func init() {
	runOpts.registerProblem(runCmd.Flags())
	runOpts.registerSolver(runCmd.Flags())
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run config")
	runCmd.Flags().BoolVar(&saveRun, "save", false, "Save the run record and trace")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for saved runs")
	runCmd.Flags().IntVar(&traceEvery, "trace-every", 1, "Write every n-th iteration to the trace")
	runCmd.Flags().BoolVar(&tracePoints, "trace-points", true, "Include points in the trace")

	rootCmd.AddCommand(runCmd)
}

func runMinimise(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(configPath)
	if err != nil {
		return err
	}
	if cmd != nil {
		runOpts.apply(cmd.Flags(), &cfg)
	}

	var target *saveTarget
	if saveRun {
		runStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		target = &saveTarget{store: runStore, id: uuid.New().String()}
	}

	start := time.Now()
	plan, res, err := runWithTrace(cfg, target)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	printResult(plan, res, elapsed)

	if target == nil {
		return nil
	}
	record := store.NewRunRecord(target.id, plan.Config, res)
	if err := target.store.SaveRecord(target.id, record); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	fmt.Printf("Saved run %s to %s\n", target.id, target.store.RunDir(target.id))
	return nil
}

// saveTarget says where a run is persisted.
type saveTarget struct {
	store  *store.FSStore
	id     string
	append bool
	// offset continues the iteration numbering of a resumed run
	offset int
}

// runWithTrace builds and executes the plan for cfg. With a target, the
// iterations are written to the run's trace; the record is left to the
// caller.
func runWithTrace(cfg store.RunConfig, target *saveTarget) (*runner.Plan, minimise.Result[float64], error) {
	var trace *store.TraceWriter
	var observers []runner.Observer
	if target != nil {
		observers = append(observers, func(it minimise.Iteration[float64]) {
			// The start of a continued run is the last entry already written
			if trace == nil || (target.offset > 0 && it.Index == 0) {
				return
			}
			trace.Observe(it)
		})
	}

	plan, err := runner.NewPlan(cfg, observers...)
	if err != nil {
		return nil, minimise.Result[float64]{}, err
	}

	if target != nil {
		trace, err = store.NewTraceWriter(target.store.BaseDir(), target.id, target.append,
			store.TraceEvery(traceEvery),
			store.TracePoints(tracePoints),
			store.TraceOffset(target.offset),
		)
		if err != nil {
			return nil, minimise.Result[float64]{}, err
		}
	}

	res, err := plan.Run()
	if trace != nil {
		if err == nil {
			trace.ObserveFinal(minimise.Iteration[float64]{
				Index:    res.Iterations(),
				Point:    res.Point(),
				GradNorm: res.Grad(),
			})
		}
		if cerr := trace.Close(); cerr != nil {
			slog.Warn("Failed to write trace", "run_id", target.id, "error", cerr)
		}
	}
	if err != nil {
		return nil, res, err
	}
	return plan, res, nil
}

func printResult(plan *runner.Plan, res minimise.Result[float64], elapsed time.Duration) {
	fmt.Printf("Objective:  %s (dim %d)\n", plan.Objective.Name, plan.Start.Len())
	fmt.Printf("State:      %s after %d iterations (%s)\n", res.State(), res.Iterations(), elapsed.Round(time.Microsecond))
	fmt.Printf("Point:      %s\n", res.Point())
	fmt.Printf("Value:      %.10g\n", res.Value())
	fmt.Printf("Grad norm:  %.6g\n", res.Grad())
}
