// Package mock provides an in-memory attendance ledger for testing.
package mock

import (
	"context"
	"strconv"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Store is an in-memory implementation of ledger.Store.
type Store struct {
	mu      sync.Mutex
	records []ledger.Record
	seen    map[string]bool // "label/day"

	// Error injection
	MarkError  error
	QueryError error
}

// New creates an empty in-memory ledger.
func New() *Store {
	return &Store{seen: make(map[string]bool)}
}

// Mark records attendance for (label, day) unless already present.
func (s *Store) Mark(ctx context.Context, label int, name string, day string) (ledger.MarkResult, error) {
	if s.MarkError != nil {
		return 0, s.MarkError
	}
	if day == "" {
		day = ledger.Today()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := key(label, day)
	if s.seen[key] {
		return ledger.AlreadyPresent, nil
	}
	s.seen[key] = true
	s.records = append(s.records, ledger.Record{
		Label: label,
		Name:  name,
		Day:   day,
		Time:  ledger.NowTime(),
	})
	return ledger.Inserted, nil
}

// Query returns records for a day in insertion order.
func (s *Store) Query(ctx context.Context, day string) ([]ledger.Record, error) {
	if s.QueryError != nil {
		return nil, s.QueryError
	}
	if day == "" {
		day = ledger.Today()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Record
	for _, r := range s.records {
		if r.Day == day {
			out = append(out, r)
		}
	}
	return out, nil
}

// QueryAll returns every record in insertion order.
func (s *Store) QueryAll(ctx context.Context) ([]ledger.Record, error) {
	if s.QueryError != nil {
		return nil, s.QueryError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func key(label int, day string) string {
	return day + "/" + strconv.Itoa(label)
}
