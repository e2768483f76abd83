// Package sqlite provides a file-backed attendance ledger. The table layout
// matches legacy attendance.db files, so existing databases keep working.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS attendance (
	id   INTEGER NOT NULL,
	name TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);
`

// Store is a SQLite-backed attendance ledger.
type Store struct {
	db *sql.DB

	// The legacy table has no uniqueness constraint on (id, date), so the
	// check-then-insert pair must be serialized here.
	mu sync.Mutex
}

// now is swapped in tests.
var now = ledger.NowTime

// Verify *Store satisfies the ledger contract at compile time.
var _ ledger.Store = (*Store)(nil)

// Open opens (or creates) the attendance database and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("attendance database path is required")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open attendance database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create attendance table: %w", err)
	}
	return &Store{db: db}, nil
}

// Mark inserts an attendance record for (label, day) unless one exists.
func (s *Store) Mark(ctx context.Context, label int, name string, day string) (ledger.MarkResult, error) {
	if day == "" {
		day = ledger.Today()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM attendance WHERE id = ? AND date = ? LIMIT 1", label, day).Scan(&exists)
	switch {
	case err == nil:
		return ledger.AlreadyPresent, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("checking attendance for label %d: %w", label, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO attendance (id, name, date, time) VALUES (?, ?, ?, ?)",
		label, name, day, now())
	if err != nil {
		return 0, fmt.Errorf("inserting attendance for label %d: %w", label, err)
	}
	return ledger.Inserted, nil
}

// Query returns attendance records for a day in insertion order. An empty day
// defaults to today.
func (s *Store) Query(ctx context.Context, day string) ([]ledger.Record, error) {
	if day == "" {
		day = ledger.Today()
	}
	records, err := s.scanRecords(ctx,
		"SELECT id, name, date, time FROM attendance WHERE date = ?", day)
	if err != nil {
		return nil, fmt.Errorf("querying attendance for %s: %w", day, err)
	}
	return records, nil
}

// QueryAll returns every attendance record across all days in insertion order.
func (s *Store) QueryAll(ctx context.Context) ([]ledger.Record, error) {
	records, err := s.scanRecords(ctx,
		"SELECT id, name, date, time FROM attendance ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	return records, nil
}

func (s *Store) scanRecords(ctx context.Context, query string, args ...any) ([]ledger.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var r ledger.Record
		if err := rows.Scan(&r.Label, &r.Name, &r.Day, &r.Time); err != nil {
			return nil, fmt.Errorf("scanning attendance row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attendance rows: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing attendance database: %w", err)
	}
	return nil
}
