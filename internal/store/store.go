package store

// Store defines the interface for run record persistence operations.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the record doesn't exist (for Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRecord atomically saves the record of a run, overwriting an
	// existing record with the same ID.
	//
	// Returns an error if the record is invalid or cannot be written.
	SaveRecord(id string, record *RunRecord) error

	// LoadRecord retrieves the record of a run.
	// Returns ErrNotFound if no record exists for this id.
	LoadRecord(id string) (*RunRecord, error)

	// ListRecords returns metadata for all stored runs, oldest first.
	// Unreadable records are skipped.
	ListRecords() ([]RunInfo, error)

	// DeleteRecord removes the record and its trace.
	// Returns ErrNotFound if no record exists for this id.
	DeleteRecord(id string) error
}

// ErrNotFound is returned when a requested record does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing record error.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "run not found: " + e.ID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
