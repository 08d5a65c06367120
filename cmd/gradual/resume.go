package main

import (
	"fmt"
	"time"

	"github.com/cwbudde/gradual/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	resumeOpts    runFlags
	resumeInPlace bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Continue a saved run from its final point",
	Long: `Loads a saved run and continues gradient descent from its final point
with the same objective and box. Solver flags that were set replace the
saved settings. The continuation is saved as a new run unless --in-place
is given, in which case the original record is replaced and its trace
extended.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeOpts.registerSolver(resumeCmd.Flags())
	resumeCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for saved runs")
	resumeCmd.Flags().BoolVar(&resumeInPlace, "in-place", false, "Replace the original run instead of saving a new one")
	resumeCmd.Flags().IntVar(&traceEvery, "trace-every", 1, "Write every n-th iteration to the trace")
	resumeCmd.Flags().BoolVar(&tracePoints, "trace-points", true, "Include points in the trace")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	prev, err := runStore.LoadRecord(args[0])
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	cfg := prev.Config
	cfg.Start = prev.Point
	if cmd != nil {
		resumeOpts.apply(cmd.Flags(), &cfg)
	}
	if err := prev.IsCompatible(cfg); err != nil {
		return err
	}

	target := &saveTarget{
		store:  runStore,
		id:     uuid.New().String(),
		offset: prev.Iterations,
	}
	if resumeInPlace {
		target.id = prev.ID
		target.append = true
	}

	start := time.Now()
	plan, res, err := runWithTrace(cfg, target)
	if err != nil {
		return err
	}
	printResult(plan, res, time.Since(start))

	record := store.NewRunRecord(target.id, plan.Config, res)
	record.Iterations += prev.Iterations
	record.ResumedFrom = prev.ID
	if resumeInPlace {
		record.ResumedFrom = prev.ResumedFrom
	}
	if err := runStore.SaveRecord(target.id, record); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	fmt.Printf("Resumed %s at iteration %d; %d iterations in total\n", prev.ID, prev.Iterations, record.Iterations)
	fmt.Printf("Saved run %s to %s\n", target.id, runStore.RunDir(target.id))
	return nil
}
