// Package gridstore persists surface tables as single-file SQLite resources.
//
// A resource holds exactly one table: a surface_tables row with the table's
// metadata and one surface_grids row per stored intensity measure, whose
// grid is a gob+gzip blob. Readers open resources query-only and never
// create files.
package gridstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/monitoring"
	"github.com/banshee-data/groundmotion/internal/surface"
)

var (
	// ErrNotFound is returned when a resource file does not exist.
	ErrNotFound = errors.New("surface table resource not found")
	// ErrCorrupt is returned when a resource exists but cannot be decoded
	// into a valid table.
	ErrCorrupt = errors.New("corrupt surface table resource")
)

var logf = monitoring.Component("gridstore")

// Store is an open resource file.
type Store struct {
	db    *sql.DB
	path  string
	clock clockwork.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp created_unix_nanos.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Create opens path for writing, creating it if necessary, and migrates
// it to SchemaVersion.
func Create(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: path, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Open opens an existing resource read-only. A missing file is ErrNotFound
// and a file at the wrong schema version is ErrCorrupt.
func Open(path string) (*Store, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrCorrupt, path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path, clock: clockwork.NewRealClock()}

	version, dirty, err := s.schemaVersion()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if version != SchemaVersion || dirty {
		db.Close()
		return nil, fmt.Errorf("%w: %s: schema version %d (dirty=%v), want %d", ErrCorrupt, path, version, dirty, SchemaVersion)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save replaces the stored table with t and returns the ID it was stored
// under. A table without an ID is given a new one.
func (s *Store) Save(t *surface.Table) (string, error) {
	meta := t.Metadata()
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	imts := t.IMTs()
	names := make([]string, len(imts))
	for i, m := range imts {
		names[i] = m.String()
	}
	imtsJSON, err := json.Marshal(names)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM surface_grids`); err != nil {
		return "", err
	}
	if _, err := tx.Exec(`DELETE FROM surface_tables`); err != nil {
		return "", err
	}
	_, err = tx.Exec(
		`INSERT INTO surface_tables (
			table_id, name, tectonic_region, distance_metric, damping, imts_json, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.Region, meta.DistanceMetric, meta.Damping, string(imtsJSON),
		s.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert table %s: %w", meta.ID, err)
	}

	var total int
	for i, m := range imts {
		g, _ := t.Grid(m)
		blob, err := encodeGrid(g)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s grid: %w", m, err)
		}
		if _, err := tx.Exec(`INSERT INTO surface_grids (table_id, imt, period, grid_blob) VALUES (?, ?, ?, ?)`,
			meta.ID, names[i], m.Period, blob); err != nil {
			return "", fmt.Errorf("failed to insert %s grid: %w", m, err)
		}
		total += len(blob)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	logf("saved table %s (%s) to %s: imts=%d blob_bytes=%d", meta.ID, meta.Name, s.path, len(imts), total)
	return meta.ID, nil
}

// Table reads the stored table.
func (s *Store) Table() (*surface.Table, error) {
	rows, err := s.db.Query(`
		SELECT table_id, name, tectonic_region, distance_metric, damping, imts_json
		FROM surface_tables`)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	var (
		meta     surface.Metadata
		imtsJSON string
		count    int
	)
	for rows.Next() {
		count++
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Region, &meta.DistanceMetric, &meta.Damping, &imtsJSON); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if count != 1 {
		return nil, fmt.Errorf("%w: %s holds %d tables, want 1", ErrCorrupt, s.path, count)
	}

	var declared []string
	if err := json.Unmarshal([]byte(imtsJSON), &declared); err != nil {
		return nil, fmt.Errorf("%w: %s: imts_json: %v", ErrCorrupt, s.path, err)
	}
	want := make(map[string]bool, len(declared))
	for _, name := range declared {
		want[name] = true
	}

	gridRows, err := s.db.Query(`SELECT imt, grid_blob FROM surface_grids WHERE table_id = ? ORDER BY period`, meta.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	defer gridRows.Close()

	var entries []surface.Entry
	for gridRows.Next() {
		var (
			name string
			blob []byte
		)
		if err := gridRows.Scan(&name, &blob); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		if !want[name] {
			return nil, fmt.Errorf("%w: %s: undeclared grid %q", ErrCorrupt, s.path, name)
		}
		delete(want, name)

		m, err := imt.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		g, err := decodeGrid(blob)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", s.path, name, err)
		}
		entries = append(entries, surface.Entry{IMT: m, Grid: g})
	}
	if err := gridRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if len(want) > 0 {
		return nil, fmt.Errorf("%w: %s: %d declared grids missing", ErrCorrupt, s.path, len(want))
	}

	t, err := surface.NewTable(meta, entries...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}
	return t, nil
}

// Write stores t as the resource at path, replacing any table already
// there, and returns its ID.
func Write(path string, t *surface.Table, opts ...Option) (string, error) {
	s, err := Create(path, opts...)
	if err != nil {
		return "", err
	}
	id, err := s.Save(t)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return id, err
}

// Load reads the table at path. It satisfies surface.Loader.
func Load(path string) (*surface.Table, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Table()
}
