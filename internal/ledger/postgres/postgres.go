// Package postgres provides a PostgreSQL-backed attendance ledger for
// deployments where several recognizers share one database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db *sql.DB
}

// Config holds PostgreSQL connection settings.
type Config struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// NewPool creates a new PostgreSQL connection pool and verifies the connection.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Store is a PostgreSQL-backed attendance ledger.
type Store struct {
	pool *Pool
}

// Verify *Store satisfies the ledger contract at compile time.
var _ ledger.Store = (*Store)(nil)

// Open connects to PostgreSQL, runs migrations, and returns a ready store.
func Open(cfg Config) (*Store, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStore wraps an existing pool. Migrations must already have run.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Mark inserts an attendance record for (label, day) unless one exists.
// The unique index on (id, date) serializes concurrent callers: whichever
// insert wins the race reports Inserted, every other caller sees
// AlreadyPresent.
func (s *Store) Mark(ctx context.Context, label int, name string, day string) (ledger.MarkResult, error) {
	if day == "" {
		day = ledger.Today()
	}

	result, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (id, name, date, time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id, date) DO NOTHING
	`, label, name, day, ledger.NowTime())
	if err != nil {
		return 0, fmt.Errorf("inserting attendance for label %d: %w", label, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking insert result: %w", err)
	}
	if affected == 0 {
		return ledger.AlreadyPresent, nil
	}
	return ledger.Inserted, nil
}

// Query returns attendance records for a day in insertion order. An empty day
// defaults to today.
func (s *Store) Query(ctx context.Context, day string) ([]ledger.Record, error) {
	if day == "" {
		day = ledger.Today()
	}
	records, err := s.scanRecords(ctx, `
		SELECT id, name, date, time FROM attendance WHERE date = $1 ORDER BY seq
	`, day)
	if err != nil {
		return nil, fmt.Errorf("querying attendance for %s: %w", day, err)
	}
	return records, nil
}

// QueryAll returns every attendance record across all days in insertion order.
func (s *Store) QueryAll(ctx context.Context) ([]ledger.Record, error) {
	records, err := s.scanRecords(ctx, `
		SELECT id, name, date, time FROM attendance ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	return records, nil
}

func (s *Store) scanRecords(ctx context.Context, query string, args ...any) ([]ledger.Record, error) {
	rows, err := s.pool.db.QueryContext(ctx, query, args...)
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

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
