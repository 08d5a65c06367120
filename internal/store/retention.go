package store

import (
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// SelectForDeletion applies a retention policy to infos: records older than
// olderThan (relative to now) are selected, and beyond that only the
// keepLast most recent records survive. A zero keepLast or olderThan
// disables that rule. The result is ordered oldest first.
func SelectForDeletion(infos []RunInfo, keepLast int, olderThan time.Duration, now time.Time) []RunInfo {
	sorted := make([]RunInfo, len(infos))
	copy(sorted, infos)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var toDelete []RunInfo
	for i, info := range sorted {
		expired := olderThan > 0 && info.Timestamp.Before(now.Add(-olderThan))
		surplus := keepLast > 0 && i < len(sorted)-keepLast
		if expired || surplus {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

// Prune deletes the records selected by SelectForDeletion. It keeps going
// after a failed delete and returns the records actually removed together
// with the first error.
func Prune(s Store, keepLast int, olderThan time.Duration) ([]RunInfo, error) {
	infos, err := s.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}

	var deleted []RunInfo
	var firstErr error
	for _, info := range SelectForDeletion(infos, keepLast, olderThan, time.Now()) {
		if err := s.DeleteRecord(info.ID); err != nil {
			slog.Error("Failed to delete run record", "run_id", info.ID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete run %s: %w", info.ID, err)
			}
			continue
		}
		slog.Info("Deleted run record", "run_id", info.ID)
		deleted = append(deleted, info)
	}
	return deleted, firstErr
}
