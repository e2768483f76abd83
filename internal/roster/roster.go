// Package roster loads the list of enrollable people from a CSV file.
// The roster is independent of trained labels; internal/registry checks the
// two stay consistent.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Entry is one person in the roster file.
type Entry struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Load reads roster entries from a CSV file with an `id,name,email` header.
// Malformed rows are skipped with a warning on stderr. A missing file yields
// an empty roster rather than an error.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening roster file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads roster entries from a CSV stream.
func Parse(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row length validated per-row below
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading roster header: %w", err)
	}

	cols := columnIndexes(header)
	if cols.id < 0 || cols.name < 0 {
		return nil, fmt.Errorf("roster header must contain id and name columns, got %v", header)
	}

	var entries []Entry
	line := 1
	for {
		line++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping malformed roster row %d: %v\n", line, err)
			continue
		}

		entry, ok := parseRow(row, cols)
		if !ok {
			fmt.Fprintf(os.Stderr, "warning: skipping malformed roster row %d: %v\n", line, row)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type columns struct {
	id, name, email int
}

func columnIndexes(header []string) columns {
	cols := columns{id: -1, name: -1, email: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			cols.id = i
		case "name":
			cols.name = i
		case "email":
			cols.email = i
		}
	}
	return cols
}

func parseRow(row []string, cols columns) (Entry, bool) {
	if cols.id >= len(row) || cols.name >= len(row) {
		return Entry{}, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(row[cols.id]))
	if err != nil {
		return Entry{}, false
	}
	entry := Entry{
		ID:   id,
		Name: strings.TrimSpace(row[cols.name]),
	}
	if cols.email >= 0 && cols.email < len(row) {
		entry.Email = strings.TrimSpace(row[cols.email])
	}
	return entry, true
}
