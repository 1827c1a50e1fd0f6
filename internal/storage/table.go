package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/tb-locations/internal/logger"
	"github.com/pfrederiksen/tb-locations/internal/store"
)

// Result describes a completed Persist call
type Result struct {
	Path     string `json:"path"`
	Rows     int    `json:"rows"`
	Existing int    `json:"existing_rows"`
	Merged   bool   `json:"merged"`
}

// ExpandPath expands a leading ~/ to the user's home directory
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// Persist writes records to outputPath, filling empty states with region.
// When existingPath names a readable table, its rows are merged in first
// and duplicates are dropped. A missing or unreadable existing table is
// logged and skipped; only a write failure is returned.
func Persist(records []store.Record, existingPath, outputPath, region string) (*Result, error) {
	fresh := make([]store.Record, len(records))
	copy(fresh, records)
	store.FillState(fresh, region)

	result := &Result{}
	rows := fresh

	if existingPath != "" {
		existing, err := loadExisting(existingPath)
		switch {
		case err != nil:
			logger.Error("ignoring existing table", logger.Fields{"path": existingPath}, err)
		case existing != nil:
			rows = store.Merge(existing, fresh)
			result.Existing = len(existing)
			result.Merged = true
			logger.Info("merged existing table", logger.Fields{
				"path":     existingPath,
				"existing": len(existing),
				"scraped":  len(fresh),
				"rows":     len(rows),
			})
		}
	}

	path, err := ExpandPath(outputPath)
	if err != nil {
		return nil, err
	}
	if err := WriteTable(path, rows); err != nil {
		return nil, err
	}

	result.Path = path
	result.Rows = len(rows)
	return result, nil
}

// loadExisting returns nil records and no error when the file does not exist
func loadExisting(path string) ([]store.Record, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Warn("existing table not found, skipping merge", logger.Fields{"path": path})
		return nil, nil
	}
	records, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []store.Record{}
	}
	return records, nil
}

// LoadTable reads a CSV table with a header row. Header names are matched
// case-insensitively; columns outside the fixed schema are dropped and
// missing ones are left empty.
func LoadTable(path string) ([]store.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var records []store.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		cells := make(map[string]string, len(store.Columns))
		for _, col := range store.Columns {
			if i, ok := index[col]; ok && i < len(row) {
				cells[col] = row[i]
			}
		}
		records = append(records, store.FromCells(cells))
	}

	return records, nil
}

// WriteTable atomically replaces path with a CSV of records
func WriteTable(path string, records []store.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tb-locations-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	w := csv.NewWriter(tmp)
	if err := w.Write(store.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			tmp.Close()
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing table: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	return nil
}
