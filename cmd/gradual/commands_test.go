package main

import (
	"errors"
	"fmt"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/gradual/internal/server"
	"github.com/cwbudde/gradual/internal/store"
	"github.com/cwbudde/gradual/minimise"
)

// withSavedRuns points the run and results commands at a fresh data
// directory with saving enabled.
func withSavedRuns(t *testing.T) *store.FSStore {
	t.Helper()
	tmpDir := t.TempDir()

	origDataDir, origSave, origConfig := dataDir, saveRun, configPath
	t.Cleanup(func() {
		dataDir, saveRun, configPath = origDataDir, origSave, origConfig
	})
	dataDir = tmpDir
	saveRun = true

	runStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return runStore
}

func saveBowlRun(t *testing.T, runStore *store.FSStore, maxIters int) store.RunInfo {
	t.Helper()
	configPath = writeConfig(t, fmt.Sprintf("objective: bowl\nstep: 0.1\nmaxIterations: %d\n", maxIters))

	before, _ := runStore.ListRecords()
	if err := runMinimise(nil, nil); err != nil {
		t.Fatalf("runMinimise failed: %v", err)
	}
	after, err := runStore.ListRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("Expected one new run, got %d -> %d", len(before), len(after))
	}
	return after[len(after)-1]
}

func traceLen(t *testing.T, baseDir, id string) int {
	t.Helper()
	reader, err := store.NewTraceReader(baseDir, id)
	if err != nil {
		t.Fatalf("Trace missing: %v", err)
	}
	defer reader.Close()
	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestRunCommand_Save(t *testing.T) {
	runStore := withSavedRuns(t)

	info := saveBowlRun(t, runStore, 10)

	if info.Iterations != 10 || info.State != "max_iterations_reached" {
		t.Errorf("Unexpected run: %+v", info)
	}
	if n := traceLen(t, runStore.BaseDir(), info.ID); n != 11 {
		t.Errorf("Expected 11 trace entries, got %d", n)
	}
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	withSavedRuns(t)
	configPath = writeConfig(t, "objective: nope\n")

	if err := runMinimise(nil, nil); err == nil {
		t.Error("Expected error for unknown objective")
	}
}

func TestResumeCommand_NewRun(t *testing.T) {
	runStore := withSavedRuns(t)
	first := saveBowlRun(t, runStore, 10)

	origInPlace := resumeInPlace
	defer func() { resumeInPlace = origInPlace }()
	resumeInPlace = false

	if err := runResume(nil, []string{first.ID}); err != nil {
		t.Fatalf("runResume failed: %v", err)
	}

	infos, err := runStore.ListRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(infos))
	}

	resumed, err := runStore.LoadRecord(infos[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.ResumedFrom != first.ID {
		t.Errorf("Expected ResumedFrom %s, got %q", first.ID, resumed.ResumedFrom)
	}
	if resumed.Iterations != 20 {
		t.Errorf("Expected 20 total iterations, got %d", resumed.Iterations)
	}
	if resumed.Value >= first.Value {
		t.Errorf("Resumed value %v should improve on %v", resumed.Value, first.Value)
	}
	// Iterations 11..20
	if n := traceLen(t, runStore.BaseDir(), resumed.ID); n != 10 {
		t.Errorf("Expected 10 trace entries, got %d", n)
	}
}

func TestResumeCommand_InPlace(t *testing.T) {
	runStore := withSavedRuns(t)
	first := saveBowlRun(t, runStore, 10)

	origInPlace := resumeInPlace
	defer func() { resumeInPlace = origInPlace }()
	resumeInPlace = true

	if err := runResume(nil, []string{first.ID}); err != nil {
		t.Fatalf("runResume failed: %v", err)
	}

	infos, _ := runStore.ListRecords()
	if len(infos) != 1 {
		t.Fatalf("Expected the run to be replaced, got %d runs", len(infos))
	}

	record, err := runStore.LoadRecord(first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if record.Iterations != 20 {
		t.Errorf("Expected 20 total iterations, got %d", record.Iterations)
	}
	if record.ResumedFrom != "" {
		t.Errorf("In-place resume should not point at itself, got %q", record.ResumedFrom)
	}

	reader, err := store.NewTraceReader(runStore.BaseDir(), first.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 21 {
		t.Fatalf("Expected 21 trace entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Iteration != i {
			t.Errorf("Entry %d has iteration %d", i, e.Iteration)
		}
	}
}

func TestResumeCommand_NotFound(t *testing.T) {
	withSavedRuns(t)

	if err := runResume(nil, []string{"missing"}); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestResultsListAndShow(t *testing.T) {
	runStore := withSavedRuns(t)

	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error on empty store, got %v", err)
	}

	info := saveBowlRun(t, runStore, 5)

	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	origTrace := showTrace
	defer func() { showTrace = origTrace }()
	showTrace = true
	if err := runShowResult(nil, []string{info.ID}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := runShowResult(nil, []string{"missing"}); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestResultsCleanCommand_NoFlags(t *testing.T) {
	withSavedRuns(t)

	origKeep, origOlder := keepLast, olderThanDays
	defer func() { keepLast, olderThanDays = origKeep, origOlder }()
	keepLast = 0
	olderThanDays = 0

	if err := runCleanResults(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestResultsCleanCommand_WithForce(t *testing.T) {
	runStore := withSavedRuns(t)
	old := saveBowlRun(t, runStore, 5)
	recent := saveBowlRun(t, runStore, 5)

	record, err := runStore.LoadRecord(old.ID)
	if err != nil {
		t.Fatal(err)
	}
	record.Timestamp = time.Now().AddDate(0, 0, -30)
	if err := runStore.SaveRecord(old.ID, record); err != nil {
		t.Fatal(err)
	}

	origKeep, origOlder, origForce := keepLast, olderThanDays, forceClean
	defer func() { keepLast, olderThanDays, forceClean = origKeep, origOlder, origForce }()
	keepLast = 0
	olderThanDays = 7
	forceClean = true

	if err := runCleanResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if _, err := runStore.LoadRecord(old.ID); err == nil {
		t.Error("Expected old run to be deleted")
	}
	if _, err := runStore.LoadRecord(recent.ID); err != nil {
		t.Errorf("Recent run should survive: %v", err)
	}
	if _, err := os.Stat(runStore.RunDir(old.ID)); !os.IsNotExist(err) {
		t.Error("Run directory should be removed with its trace")
	}
}

func TestListCommand(t *testing.T) {
	if err := runList(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestGradCommand(t *testing.T) {
	origObj, origAt := gradObjective, gradAt
	defer func() { gradObjective, gradAt = origObj, origAt }()

	gradObjective = "bowl"
	gradAt = nil
	if err := runGrad(nil, nil); err != nil {
		t.Errorf("Expected no error at default start, got %v", err)
	}

	gradAt = []float64{1, 2}
	if err := runGrad(nil, nil); err == nil {
		t.Error("Expected dimension error")
	}

	gradObjective = "sphere"
	gradAt = nil
	if err := runGrad(nil, nil); err == nil {
		t.Error("Expected error without a point for sphere")
	}

	gradObjective = "nope"
	if err := runGrad(nil, nil); err == nil {
		t.Error("Expected error for unknown objective")
	}
}

func TestCompareCommand(t *testing.T) {
	orig := compareOpts
	origIters, origPop := mayflyIters, popSize
	defer func() {
		compareOpts = orig
		mayflyIters, popSize = origIters, origPop
	}()

	compareOpts = runFlags{
		objective: "bowl",
		lower:     []float64{-10, -10, -10},
		upper:     []float64{10, 10, 10},
		step:      0.1,
		tol:       1e-8,
		maxIters:  1000,
	}
	mayflyIters = 20
	popSize = 10

	if err := runCompare(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	compareOpts.upper = []float64{10, 10}
	if err := runCompare(nil, nil); err == nil {
		t.Error("Expected error for mismatched bounds")
	}
}

func TestCompareCommandRejectsBadBox(t *testing.T) {
	orig := compareOpts
	origIters, origPop := mayflyIters, popSize
	defer func() {
		compareOpts = orig
		mayflyIters, popSize = origIters, origPop
	}()
	mayflyIters = 20
	popSize = 10

	tests := []struct {
		name         string
		lower, upper []float64
	}{
		{"inverted", []float64{-10, 5}, []float64{10, 1}},
		{"infinite lower", []float64{math.Inf(-1), -10}, []float64{10, 10}},
		{"infinite upper", []float64{-10, -10}, []float64{10, math.Inf(1)}},
		{"nan", []float64{math.NaN(), -10}, []float64{10, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compareOpts = runFlags{
				objective: "bowl",
				lower:     tt.lower,
				upper:     tt.upper,
				step:      0.1,
				tol:       1e-8,
				maxIters:  1000,
			}
			err := runCompare(nil, nil)
			if !errors.Is(err, minimise.ErrInvalidBounds) {
				t.Errorf("Expected ErrInvalidBounds, got %v", err)
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	srv := server.NewServer("localhost:0", nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	origURL := serverURL
	defer func() { serverURL = origURL }()
	serverURL = ts.URL

	if err := runStatus(nil, nil); err != nil {
		t.Errorf("Expected no error listing jobs, got %v", err)
	}
	if err := runStatus(nil, []string{"missing"}); err == nil {
		t.Error("Expected error for unknown job")
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "a"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "sub", "b"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if size != 150 {
		t.Errorf("Expected 150 bytes, got %d", size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.expected {
			t.Errorf("formatBytes(%d) = %s, want %s", tt.bytes, got, tt.expected)
		}
	}
}
