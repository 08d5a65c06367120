package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestRecord creates a run record with test data.
func createTestRecord(id string) *RunRecord {
	return &RunRecord{
		ID:         id,
		Point:      []float64{1.0000001, 1.9999998, 5},
		Value:      5e-14,
		GradNorm:   8e-7,
		Iterations: 812,
		Converged:  true,
		State:      "converged",
		Timestamp:  time.Now(),
		Config: RunConfig{
			Objective:     "bowl",
			Start:         []float64{10, -5, 3},
			Step:          0.01,
			GradTol:       1e-6,
			MaxIterations: 10000,
		},
	}
}

func TestNewFSStore(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != tempDir {
		t.Errorf("Expected base dir %s, got %s", tempDir, store.BaseDir())
	}
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveRecord(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRecord("run-1", createTestRecord("run-1")); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	path := filepath.Join(tempDir, "runs", "run-1", "record.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Record file not created: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temp file left behind after save")
	}
}

func TestSaveRecord_Rejects(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRecord("", createTestRecord("x")); err == nil {
		t.Error("Expected error for empty id")
	}
	if err := store.SaveRecord("x", nil); err == nil {
		t.Error("Expected error for nil record")
	}

	diverged := createTestRecord("diverged")
	diverged.Value = nanValue()
	err := store.SaveRecord("diverged", diverged)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Field != "Value" {
		t.Errorf("Expected field Value, got %s", verr.Field)
	}
}

func TestSaveRecord_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	rec := createTestRecord("run-1")
	if err := store.SaveRecord("run-1", rec); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	rec.Iterations = 2000
	if err := store.SaveRecord("run-1", rec); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRecord("run-1")
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if loaded.Iterations != 2000 {
		t.Errorf("Expected overwritten iterations 2000, got %d", loaded.Iterations)
	}
}

func TestLoadRecord(t *testing.T) {
	store, _ := setupTestStore(t)

	original := createTestRecord("run-1")
	if err := store.SaveRecord("run-1", original); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	loaded, err := store.LoadRecord("run-1")
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}

	if loaded.ID != original.ID {
		t.Errorf("ID mismatch: expected %s, got %s", original.ID, loaded.ID)
	}
	if loaded.Value != original.Value || loaded.GradNorm != original.GradNorm {
		t.Errorf("Result mismatch: expected (%g, %g), got (%g, %g)",
			original.Value, original.GradNorm, loaded.Value, loaded.GradNorm)
	}
	for i := range original.Point {
		if loaded.Point[i] != original.Point[i] {
			t.Errorf("Point[%d] mismatch: expected %v, got %v", i, original.Point[i], loaded.Point[i])
		}
	}
	if loaded.Config.Objective != "bowl" || loaded.Config.Step != 0.01 {
		t.Errorf("Config mismatch: %+v", loaded.Config)
	}
	if !loaded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", original.Timestamp, loaded.Timestamp)
	}
}

func TestLoadRecord_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRecord("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "missing" {
		t.Errorf("Expected NotFoundError for id missing, got %v", err)
	}
}

func TestLoadRecord_Corrupt(t *testing.T) {
	store, _ := setupTestStore(t)

	dir := store.RunDir("broken")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "record.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.LoadRecord("broken")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected deserialization error, got %v", err)
	}
}

func TestListRecords_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected 0 records, got %d", len(infos))
	}
}

func TestListRecords_OldestFirst(t *testing.T) {
	store, _ := setupTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		rec := createTestRecord(id)
		rec.Timestamp = base.Add(time.Duration(2-i) * time.Hour)
		if err := store.SaveRecord(id, rec); err != nil {
			t.Fatalf("SaveRecord %s failed: %v", id, err)
		}
	}

	infos, err := store.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(infos))
	}

	want := []string{"b", "a", "c"}
	for i, info := range infos {
		if info.ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], info.ID)
		}
	}
}

func TestListRecords_SkipsInvalidDirectories(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRecord("valid", createTestRecord("valid")); err != nil {
		t.Fatalf("Failed to save valid record: %v", err)
	}

	// Directory without record.json
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	// Corrupt record
	corrupt := filepath.Join(tempDir, "runs", "corrupt")
	if err := os.MkdirAll(corrupt, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, "record.json"), []byte("]"), 0644); err != nil {
		t.Fatal(err)
	}

	// Non-directory entry
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "dummy.txt"), []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	infos, err := store.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "valid" {
		t.Errorf("Expected only the valid record, got %+v", infos)
	}
}

func TestDeleteRecord(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRecord("run-1", createTestRecord("run-1")); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	tw, err := NewTraceWriter(store.BaseDir(), "run-1", false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteRecord("run-1"); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	if _, err := os.Stat(store.RunDir("run-1")); !os.IsNotExist(err) {
		t.Error("Run directory still exists after delete")
	}
	if err := store.DeleteRecord("run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.DeleteRecord(""); err == nil {
		t.Error("Expected error for empty id")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numRuns = 10
	done := make(chan bool, numRuns)

	for i := 0; i < numRuns; i++ {
		go func(idx int) {
			id := fmt.Sprintf("concurrent-run-%d", idx)
			if err := store.SaveRecord(id, createTestRecord(id)); err != nil {
				t.Errorf("Concurrent save failed for run %s: %v", id, err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < numRuns; i++ {
		<-done
	}

	infos, err := store.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(infos) != numRuns {
		t.Errorf("Expected %d records, got %d", numRuns, len(infos))
	}
}
