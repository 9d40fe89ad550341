// Package store persists analysis runs in SQLite.
//
// A run is one invocation of the analyzer: the statements it saw, the
// tables each statement read and wrote, the external resources it touched,
// and its column edges. Runs are identified by UUID and can be looked up
// by any unique prefix of it.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/leaplineage/internal/analyzer"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout keeps created_at sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrRunNotFound is returned when no run matches an ID or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when a prefix matches several runs.
	ErrAmbiguousRun = errors.New("run prefix is ambiguous")
	// ErrNotOpen is returned when the store has no database connection.
	ErrNotOpen = errors.New("database not opened")
)

// Store reads and writes runs.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Run is one persisted analysis.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Dialect       string
	DefaultSchema string
	// Sources lists the analyzed files; "-" stands for stdin.
	Sources []string
	Records []analyzer.Record
}

// RunSummary describes a run without its statements.
type RunSummary struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Dialect    string    `json:"dialect" yaml:"dialect"`
	Sources    []string  `json:"sources" yaml:"sources"`
	Statements int       `json:"statements" yaml:"statements"`
	Failed     int       `json:"failed" yaml:"failed"`
}

// NewRun builds a run with a fresh ID.
func NewRun(dialect, defaultSchema string, sources []string, records []analyzer.Record) *Run {
	return &Run{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		Dialect:       dialect,
		DefaultSchema: defaultSchema,
		Sources:       sources,
		Records:       records,
	}
}

// Summary returns the run's summary.
func (r *Run) Summary() RunSummary {
	s := RunSummary{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		Dialect:    r.Dialect,
		Sources:    r.Sources,
		Statements: len(r.Records),
	}
	for _, rec := range r.Records {
		if rec.Failed() {
			s.Failed++
		}
	}
	return s
}

// Open opens the database at path and applies pending migrations.
// Use MemoryPath for a throwaway database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// an in-memory database exists only on its own connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := New(db, logger)
	s.path = path
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("state opened", "path", path)
	return s, nil
}

// New wraps an existing connection without migrating it.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}
}

// Path returns the path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
