package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/gradual/internal/runner"
	"github.com/cwbudde/gradual/internal/store"
	"github.com/cwbudde/gradual/minimise"
)

// ErrNonFiniteResult marks a job whose minimisation produced NaN or Inf.
var ErrNonFiniteResult = errors.New("minimisation produced a non-finite result")

// traceStore is implemented by stores that keep traces next to records.
type traceStore interface {
	BaseDir() string
}

// runJob executes a minimisation job in the background. The minimiser runs
// to completion; ctx only stops the progress monitor. If runStore is not
// nil the result is saved, with a trace when the store supports one.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, jobID string, progressInterval time.Duration) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "objective", job.Config.Objective)

	var trace *store.TraceWriter
	plan, err := runner.NewPlan(job.Config,
		func(it minimise.Iteration[float64]) { recordProgress(jm, jobID, it) },
		func(it minimise.Iteration[float64]) {
			if trace != nil {
				trace.Observe(it)
			}
		},
	)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	if ts, ok := runStore.(traceStore); ok {
		trace, err = store.NewTraceWriter(ts.BaseDir(), jobID, false)
		if err != nil {
			slog.Warn("Failed to open trace, continuing without", "job_id", jobID, "error", err)
			trace = nil
		}
	}

	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressInterval, progressDone)

	res, err := plan.Run()
	close(progressDone)
	if err != nil {
		closeTrace(trace, jobID)
		markJobFailed(jm, jobID, err)
		return err
	}
	if trace != nil {
		trace.ObserveFinal(minimise.Iteration[float64]{
			Index:    res.Iterations(),
			Point:    res.Point(),
			GradNorm: res.Grad(),
		})
	}
	closeTrace(trace, jobID)

	if !finite(res.Value()) || !finite(res.Grad()) || !res.Point().IsFinite() {
		err := fmt.Errorf("%w: value %v, gradient norm %v", ErrNonFiniteResult, res.Value(), res.Grad())
		markJobFailed(jm, jobID, err)
		return err
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Config = plan.Config
		j.Point = res.Point().Slice()
		j.Value = res.Value()
		j.GradNorm = res.Grad()
		j.Iterations = res.Iterations()
		j.Converged = res.Converged()
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	if runStore != nil {
		record := store.NewRunRecord(jobID, plan.Config, res)
		if err := runStore.SaveRecord(jobID, record); err != nil {
			slog.Error("Failed to save run record", "job_id", jobID, "error", err)
		} else {
			jm.UpdateJob(jobID, func(j *Job) { j.Saved = true })
		}
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", endTime.Sub(job.StartTime),
		"state", res.State().String(),
		"iterations", res.Iterations(),
		"grad_norm", res.Grad(),
		"value", res.Value(),
	)

	final, _ := jm.GetJob(jobID)
	jm.broadcaster.Broadcast(eventFromJob(final))
	jm.broadcaster.CleanupJob(jobID)

	return nil
}

// recordProgress copies the latest finite iteration into the job.
func recordProgress(jm *JobManager, jobID string, it minimise.Iteration[float64]) {
	if !finite(it.GradNorm) || !it.Point.IsFinite() {
		return
	}
	point := it.Point.Slice()
	jm.UpdateJob(jobID, func(j *Job) {
		j.Iterations = it.Index
		j.GradNorm = it.GradNorm
		j.Point = point
	})
}

// monitorProgress periodically broadcasts progress events during minimisation
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, interval time.Duration, done chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastIteration := -1
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			if job.Iterations == lastIteration {
				continue
			}
			lastIteration = job.Iterations
			jm.broadcaster.Broadcast(eventFromJob(job))
		}
	}
}

// markJobFailed marks a job as failed and broadcasts the final event
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(eventFromJob(job))
	}
	jm.broadcaster.CleanupJob(jobID)
}

func closeTrace(trace *store.TraceWriter, jobID string) {
	if trace == nil {
		return
	}
	if err := trace.Close(); err != nil {
		slog.Warn("Failed to write trace", "job_id", jobID, "error", err)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
