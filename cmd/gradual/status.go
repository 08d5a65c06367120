package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwbudde/gradual/internal/server"
	"github.com/cwbudde/gradual/vector"
	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func listJobs(url string) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []server.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job.ID)
		fmt.Printf("  State: %s\n", job.State)
		fmt.Printf("  Objective: %s\n", job.Config.Objective)
		if job.Iterations > 0 {
			fmt.Printf("  Iterations: %d (grad norm %.3g)\n", job.Iterations, job.GradNorm)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status server.JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status.ID)
	fmt.Printf("State: %s\n", status.State)
	fmt.Println()

	cfg := status.Config
	fmt.Println("Configuration:")
	fmt.Printf("  Objective: %s\n", cfg.Objective)
	fmt.Printf("  Start: %s\n", formatPoint(cfg.Start))
	if cfg.Bounded() {
		fmt.Printf("  Box: %s .. %s\n", formatPoint(cfg.Lower), formatPoint(cfg.Upper))
	}
	fmt.Printf("  Step: %g\n", cfg.Step)
	fmt.Printf("  Tolerance: %g\n", cfg.GradTol)
	fmt.Printf("  Max iterations: %d\n", cfg.MaxIterations)
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Iterations: %d\n", status.Iterations)
	fmt.Printf("  Grad norm: %.6g\n", status.GradNorm)
	if status.Point != nil {
		fmt.Printf("  Point: %s\n", vector.FromSlice(status.Point))
	}
	if status.State == server.StateCompleted {
		fmt.Printf("  Value: %.10g\n", status.Value)
		fmt.Printf("  Converged: %v\n", status.Converged)
		fmt.Printf("  Saved: %v\n", status.Saved)
	}

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.IterationsPerSecond > 0 {
		fmt.Printf("  Throughput: %.0f iterations/sec\n", status.IterationsPerSecond)
	}

	if status.Error != "" {
		fmt.Printf("\nError: %s\n", status.Error)
	}

	return nil
}
