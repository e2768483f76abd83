// Package ledger defines the attendance record store: at most one record per
// person per day, append-only from the core's point of view.
package ledger

import (
	"context"
	"time"
)

// Record is one attendance row. Day is ISO-8601 (2006-01-02) and Time is
// HH:MM:SS, matching the legacy attendance table. Name is a snapshot taken at
// mark time and may diverge from the current label map after retraining.
type Record struct {
	Label int    `json:"label"`
	Name  string `json:"name"`
	Day   string `json:"day"`
	Time  string `json:"time"`
}

// MarkResult reports what Mark did.
type MarkResult int

const (
	// Inserted means a new record was created for (label, day).
	Inserted MarkResult = iota
	// AlreadyPresent means a record for (label, day) already existed; the
	// call was a no-op, not an error.
	AlreadyPresent
)

// String returns a human-readable result name.
func (r MarkResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already present"
	default:
		return "unknown"
	}
}

// Store is the attendance ledger contract. Mark is check-then-insert:
// implementations must serialize concurrent Mark calls for the same
// (label, day) so repeated sightings never produce duplicate rows. Write
// failures propagate; silently losing an attendance event is worse than a
// visible error. QueryAll returns every record across all days, in
// insertion order, for exports.
type Store interface {
	Mark(ctx context.Context, label int, name string, day string) (MarkResult, error)
	Query(ctx context.Context, day string) ([]Record, error)
	QueryAll(ctx context.Context) ([]Record, error)
	Close() error
}

// Today returns the current day in the ledger's date format.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// NowTime returns the current time of day in the ledger's time format.
func NowTime() string {
	return time.Now().Format("15:04:05")
}
