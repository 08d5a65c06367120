package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/gradual/minimise"
)

// TraceEntry is one line of trace.jsonl: the state after an update.
type TraceEntry struct {
	// Iteration is the update index; 0 is the starting point
	Iteration int `json:"iteration"`

	// GradNorm is the Euclidean gradient norm at Point
	GradNorm float64 `json:"gradNorm"`

	// Point is omitted when the writer was created without points
	Point []float64 `json:"point,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// TraceWriter writes trace entries to a JSONL file.
// It uses buffered I/O for performance and is safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string

	every      int
	withPoints bool
	offset     int
	err        error
	last       int
}

// TraceOption configures a TraceWriter.
type TraceOption func(*TraceWriter)

// TraceEvery keeps every n-th iteration passed to Observe.
func TraceEvery(n int) TraceOption {
	return func(tw *TraceWriter) {
		if n > 0 {
			tw.every = n
		}
	}
}

// TracePoints includes the point of every entry.
func TracePoints(on bool) TraceOption {
	return func(tw *TraceWriter) { tw.withPoints = on }
}

// TraceOffset shifts observed iteration indices by n, so a resumed run
// continues the numbering of the run it extends.
func TraceOffset(n int) TraceOption {
	return func(tw *TraceWriter) { tw.offset = n }
}

// NewTraceWriter creates a new trace writer for the given run.
// The trace file is created at <baseDir>/runs/<id>/trace.jsonl.
// If append is true, new entries are appended to existing file.
func NewTraceWriter(baseDir, id string, append bool, opts ...TraceOption) (*TraceWriter, error) {
	dir := runDir(baseDir, id)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	path := filepath.Join(dir, "trace.jsonl")

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	tw := &TraceWriter{
		file:       file,
		writer:     bufio.NewWriterSize(file, 64*1024), // 64KB buffer
		path:       path,
		every:      1,
		withPoints: true,
		last:       -1,
	}
	for _, opt := range opts {
		opt(tw)
	}
	return tw, nil
}

// Write appends a trace entry to the file.
// The entry is buffered and will be written on Flush() or Close().
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.write(entry)
}

func (tw *TraceWriter) write(entry TraceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}

	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}

	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	tw.last = entry.Iteration
	return nil
}

// Observe is a minimise observer. Non-finite iterations are dropped since
// JSON cannot carry them. The first write error is kept and returned by
// Err and Close.
func (tw *TraceWriter) Observe(it minimise.Iteration[float64]) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.observe(it, false)
}

// ObserveFinal writes the last iteration of a run regardless of the
// TraceEvery stride, unless Observe already wrote it.
func (tw *TraceWriter) ObserveFinal(it minimise.Iteration[float64]) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.last == it.Index+tw.offset {
		return
	}
	tw.observe(it, true)
}

func (tw *TraceWriter) observe(it minimise.Iteration[float64], force bool) {
	if tw.err != nil || (!force && it.Index%tw.every != 0) {
		return
	}
	if math.IsNaN(it.GradNorm) || math.IsInf(it.GradNorm, 0) || !it.Point.IsFinite() {
		return
	}

	entry := TraceEntry{Iteration: it.Index + tw.offset, GradNorm: it.GradNorm, Timestamp: time.Now()}
	if tw.withPoints {
		entry.Point = it.Point.Slice()
	}
	tw.err = tw.write(entry)
}

// Err returns the first error hit by Observe.
func (tw *TraceWriter) Err() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.err
}

// Flush writes any buffered data to the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}

	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}

	return nil
}

// Close flushes buffered data and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}

	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}

	return tw.err
}

// Path returns the filesystem path to the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader reads trace entries from a JSONL file.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader creates a new trace reader for the given run.
func NewTraceReader(baseDir, id string) (*TraceReader, error) {
	path := filepath.Join(runDir(baseDir, id), "trace.jsonl")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	// Points of high-dimensional runs make long lines
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 64KB initial, 1MB max

	return &TraceReader{
		file:    file,
		scanner: scanner,
	}, nil
}

// Read reads the next trace entry from the file.
// Returns io.EOF when no more entries are available.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace entry: %w", err)
	}

	return &entry, nil
}

// ReadAll reads all trace entries from the file.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry

	for {
		entry, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// Close closes the trace reader.
func (tr *TraceReader) Close() error {
	if err := tr.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// DeleteTrace removes the trace file for the given run.
// Returns nil if the file doesn't exist.
func DeleteTrace(baseDir, id string) error {
	path := filepath.Join(runDir(baseDir, id), "trace.jsonl")

	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete trace file: %w", err)
	}

	return nil
}
