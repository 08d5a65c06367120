package store

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/gradual/dual"
	"github.com/cwbudde/gradual/minimise"
	"github.com/cwbudde/gradual/vector"
)

func readTrace(t *testing.T, baseDir, id string) []TraceEntry {
	t.Helper()

	reader, err := NewTraceReader(baseDir, id)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	return entries
}

func iteration(index int, x ...float64) minimise.Iteration[float64] {
	p := vector.New(x...)
	return minimise.Iteration[float64]{Index: index, Point: p, Gradient: p.Scale(2), GradNorm: 2 * p.Norm()}
}

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-123"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Iteration: 0, GradNorm: 10, Timestamp: time.Now()},
		{Iteration: 10, GradNorm: 1, Timestamp: time.Now()},
		{Iteration: 20, GradNorm: 0.1, Timestamp: time.Now(), Point: []float64{1, 2, 3}},
		{Iteration: 30, GradNorm: 0.01, Timestamp: time.Now()},
	}

	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	tracePath := filepath.Join(tmpDir, "runs", runID, "trace.jsonl")
	if writer.Path() != tracePath {
		t.Errorf("Expected path %s, got %s", tracePath, writer.Path())
	}
	if _, err := os.Stat(tracePath); os.IsNotExist(err) {
		t.Fatalf("Trace file not created: %s", tracePath)
	}

	readEntries := readTrace(t, tmpDir, runID)
	if len(readEntries) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(readEntries))
	}

	for i, entry := range readEntries {
		if entry.Iteration != entries[i].Iteration {
			t.Errorf("Entry %d: expected iteration %d, got %d", i, entries[i].Iteration, entry.Iteration)
		}
		if entry.GradNorm != entries[i].GradNorm {
			t.Errorf("Entry %d: expected grad norm %f, got %f", i, entries[i].GradNorm, entry.GradNorm)
		}
		if len(entry.Point) != len(entries[i].Point) {
			t.Errorf("Entry %d: expected %d coordinates, got %d", i, len(entries[i].Point), len(entry.Point))
		}
	}
}

func TestTraceWriter_Append(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-append"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	writer.Observe(iteration(0, 3))
	writer.Observe(iteration(1, 2))
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	writer, err = NewTraceWriter(tmpDir, runID, true, TraceOffset(1))
	if err != nil {
		t.Fatalf("Failed to create trace writer in append mode: %v", err)
	}
	writer.Observe(iteration(1, 1))
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	entries := readTrace(t, tmpDir, runID)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Iteration != i {
			t.Errorf("Entry %d: expected iteration %d, got %d", i, i, entry.Iteration)
		}
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-flush"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Write(TraceEntry{Iteration: 0, GradNorm: 1.0, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}

	if err := writer.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	// Data should be on disk now (even without closing)
	data, err := os.ReadFile(writer.Path())
	if err != nil {
		t.Fatalf("Failed to read trace file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Trace file is empty after flush")
	}
}

func TestTraceReader_ReadIteratively(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-iter"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	for i := 0; i < 3; i++ {
		writer.Observe(iteration(i, float64(3-i)))
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	for i := 0; i < 3; i++ {
		entry, err := reader.Read()
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if entry.Iteration != i || entry.Point[0] != float64(3-i) {
			t.Errorf("Entry %d: unexpected %+v", i, entry)
		}
	}
	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceWriter_ObserveStride(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-stride"

	writer, err := NewTraceWriter(tmpDir, runID, false, TraceEvery(5), TracePoints(false))
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	for i := 0; i <= 12; i++ {
		writer.Observe(iteration(i, 1))
	}
	writer.ObserveFinal(iteration(12, 1))
	writer.ObserveFinal(iteration(12, 1))
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	entries := readTrace(t, tmpDir, runID)
	want := []int{0, 5, 10, 12}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
	}
	for i, entry := range entries {
		if entry.Iteration != want[i] {
			t.Errorf("Entry %d: expected iteration %d, got %d", i, want[i], entry.Iteration)
		}
		if entry.Point != nil {
			t.Errorf("Entry %d: expected no point, got %v", i, entry.Point)
		}
	}
}

func TestTraceWriter_SkipsNonFinite(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-nan"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	writer.Observe(iteration(0, 1))
	writer.Observe(iteration(1, math.NaN()))
	writer.Observe(iteration(2, math.Inf(1)))
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if entries := readTrace(t, tmpDir, runID); len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestTraceWriter_AsMinimiserObserver(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-observer"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	m, err := minimise.New(0.1, 1e-6, minimise.WithMaxIterations(4))
	if err != nil {
		t.Fatal(err)
	}
	m = m.WithObserver(writer.Observe)
	f := func(x []dual.Dual[float64]) dual.Dual[float64] { return x[0].Mul(x[0]) }
	if _, err := m.Minimise(f, vector.New(5.0)); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	entries := readTrace(t, tmpDir, runID)
	if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}
	if entries[1].Point[0] != 4 || entries[1].GradNorm != 8 {
		t.Errorf("Unexpected first update: %+v", entries[1])
	}
}

func TestDeleteTrace(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-delete"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	if err := DeleteTrace(tmpDir, runID); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(writer.Path()); !os.IsNotExist(err) {
		t.Error("Trace file still exists after delete")
	}

	// Deleting a missing trace is not an error
	if err := DeleteTrace(tmpDir, runID); err != nil {
		t.Errorf("DeleteTrace on missing file failed: %v", err)
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-concurrent"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	defer writer.Close()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(iter int) {
			entry := TraceEntry{
				Iteration: iter,
				GradNorm:  float64(iter),
				Timestamp: time.Now(),
			}
			if err := writer.Write(entry); err != nil {
				t.Errorf("Concurrent write failed: %v", err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if err := writer.Flush(); err != nil {
		t.Fatal(err)
	}

	if entries := readTrace(t, tmpDir, runID); len(entries) != 10 {
		t.Errorf("Expected 10 entries, got %d", len(entries))
	}
}
