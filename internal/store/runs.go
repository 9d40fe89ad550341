package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leaplineage/internal/analyzer"
	"github.com/leapstack-labs/leaplineage/pkg/lineage"
)

const (
	directionInput  = "input"
	directionOutput = "output"
)

// TableUse is one statement reading or writing a table.
type TableUse struct {
	RunID     string `json:"run_id" yaml:"run_id"`
	Index     int    `json:"index" yaml:"index"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	Direction string `json:"direction" yaml:"direction"`
	Table     string `json:"table" yaml:"table"`
}

// SaveRun stores a run and all of its statements in one transaction.
// A missing ID or timestamp is filled in.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	sources, err := json.Marshal(nonNil(run.Sources))
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	summary := run.Summary()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, dialect, default_schema, sources, statements, failed) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.CreatedAt), run.Dialect, run.DefaultSchema, string(sources), summary.Statements, summary.Failed,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, rec := range run.Records {
		if err := insertRecord(ctx, tx, run.ID, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debug("run saved", "id", run.ID, "statements", summary.Statements)
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, runID string, rec analyzer.Record) error {
	stmtID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO statements (id, run_id, idx, file, sql, error) VALUES (?, ?, ?, ?, ?, ?)`,
		stmtID, runID, rec.Index, rec.File, rec.SQL, rec.Error,
	); err != nil {
		return fmt.Errorf("failed to insert statement %d: %w", rec.Index, err)
	}

	for dir, names := range map[string][]string{directionInput: rec.Inputs, directionOutput: rec.Outputs} {
		for i, name := range names {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO table_edges (statement_id, direction, position, name) VALUES (?, ?, ?, ?)`,
				stmtID, dir, i, name,
			); err != nil {
				return fmt.Errorf("failed to insert table edge: %w", err)
			}
		}
	}

	for dir, exts := range map[string][]lineage.ExternalMeta{directionInput: rec.ExternalInputs, directionOutput: rec.ExternalOutputs} {
		for i, e := range exts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO external_edges (statement_id, direction, position, name, scheme, table_like, quoted) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				stmtID, dir, i, e.Name, e.Scheme, e.TableLike, e.Quoted,
			); err != nil {
				return fmt.Errorf("failed to insert external edge: %w", err)
			}
		}
	}

	for ci, col := range rec.Columns {
		if len(col.Sources) == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO column_edges (statement_id, column_idx, column_name, source_idx, source_name) VALUES (?, ?, ?, 0, NULL)`,
				stmtID, ci, col.Column,
			); err != nil {
				return fmt.Errorf("failed to insert column edge: %w", err)
			}
			continue
		}
		for si, src := range col.Sources {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO column_edges (statement_id, column_idx, column_name, source_idx, source_name) VALUES (?, ?, ?, ?, ?)`,
				stmtID, ci, col.Column, si, src,
			); err != nil {
				return fmt.Errorf("failed to insert column edge: %w", err)
			}
		}
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, dialect, sources, statements, failed FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r                  RunSummary
			createdAt, sources string
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.Dialect, &sources, &r.Statements, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sources), &r.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ResolveRunID expands a unique ID prefix to the full run ID. The prefix
// is matched literally.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	if s.db == nil {
		return "", ErrNotOpen
	}
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, prefix, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
	}
}

// GetRun loads a run and its statements by ID or unique ID prefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	id, err := s.ResolveRunID(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	run := &Run{ID: id}
	var createdAt, sources string
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at, dialect, default_schema, sources FROM runs WHERE id = ?`, id,
	).Scan(&createdAt, &run.Dialect, &run.DefaultSchema, &sources)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}

	byID, err := s.loadStatements(ctx, run)
	if err != nil {
		return nil, err
	}
	if err := s.loadTableEdges(ctx, id, byID); err != nil {
		return nil, err
	}
	if err := s.loadExternalEdges(ctx, id, byID); err != nil {
		return nil, err
	}
	if err := s.loadColumnEdges(ctx, id, byID); err != nil {
		return nil, err
	}
	return run, nil
}

// loadStatements fills run.Records and maps statement IDs to them.
func (s *Store) loadStatements(ctx context.Context, run *Run) (map[string]*analyzer.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, idx, file, sql, error FROM statements WHERE run_id = ? ORDER BY rowid`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load statements: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var (
			id  string
			rec = analyzer.Record{Inputs: []string{}, Outputs: []string{}}
		)
		if err := rows.Scan(&id, &rec.Index, &rec.File, &rec.SQL, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		ids = append(ids, id)
		run.Records = append(run.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load statements: %w", err)
	}

	byID := make(map[string]*analyzer.Record, len(ids))
	for i, id := range ids {
		byID[id] = &run.Records[i]
	}
	return byID, nil
}

func (s *Store) loadTableEdges(ctx context.Context, runID string, byID map[string]*analyzer.Record) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.statement_id, e.direction, e.name
		FROM table_edges e JOIN statements st ON st.id = e.statement_id
		WHERE st.run_id = ?
		ORDER BY e.statement_id, e.direction, e.position`, runID)
	if err != nil {
		return fmt.Errorf("failed to load table edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stmtID, dir, name string
		if err := rows.Scan(&stmtID, &dir, &name); err != nil {
			return fmt.Errorf("failed to scan table edge: %w", err)
		}
		rec, ok := byID[stmtID]
		if !ok {
			continue
		}
		if dir == directionInput {
			rec.Inputs = append(rec.Inputs, name)
		} else {
			rec.Outputs = append(rec.Outputs, name)
		}
	}
	return rows.Err()
}

func (s *Store) loadExternalEdges(ctx context.Context, runID string, byID map[string]*analyzer.Record) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.statement_id, e.direction, e.name, e.scheme, e.table_like, e.quoted
		FROM external_edges e JOIN statements st ON st.id = e.statement_id
		WHERE st.run_id = ?
		ORDER BY e.statement_id, e.direction, e.position`, runID)
	if err != nil {
		return fmt.Errorf("failed to load external edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stmtID, dir string
			e           lineage.ExternalMeta
		)
		if err := rows.Scan(&stmtID, &dir, &e.Name, &e.Scheme, &e.TableLike, &e.Quoted); err != nil {
			return fmt.Errorf("failed to scan external edge: %w", err)
		}
		rec, ok := byID[stmtID]
		if !ok {
			continue
		}
		if dir == directionInput {
			rec.ExternalInputs = append(rec.ExternalInputs, e)
		} else {
			rec.ExternalOutputs = append(rec.ExternalOutputs, e)
		}
	}
	return rows.Err()
}

func (s *Store) loadColumnEdges(ctx context.Context, runID string, byID map[string]*analyzer.Record) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.statement_id, e.column_idx, e.column_name, e.source_name
		FROM column_edges e JOIN statements st ON st.id = e.statement_id
		WHERE st.run_id = ?
		ORDER BY e.statement_id, e.column_idx, e.source_idx`, runID)
	if err != nil {
		return fmt.Errorf("failed to load column edges: %w", err)
	}
	defer rows.Close()

	lastIdx := map[string]int{}
	for rows.Next() {
		var (
			stmtID, column string
			colIdx         int
			source         sql.NullString
		)
		if err := rows.Scan(&stmtID, &colIdx, &column, &source); err != nil {
			return fmt.Errorf("failed to scan column edge: %w", err)
		}
		rec, ok := byID[stmtID]
		if !ok {
			continue
		}
		if prev, seen := lastIdx[stmtID]; !seen || prev != colIdx {
			rec.Columns = append(rec.Columns, analyzer.ColumnEdge{Column: column, Sources: []string{}})
			lastIdx[stmtID] = colIdx
		}
		if source.Valid {
			edge := &rec.Columns[len(rec.Columns)-1]
			edge.Sources = append(edge.Sources, source.String)
		}
	}
	return rows.Err()
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(ctx context.Context, idOrPrefix string) (string, error) {
	id, err := s.ResolveRunID(ctx, idOrPrefix)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM column_edges WHERE statement_id IN (SELECT id FROM statements WHERE run_id = ?)`,
		`DELETE FROM external_edges WHERE statement_id IN (SELECT id FROM statements WHERE run_id = ?)`,
		`DELETE FROM table_edges WHERE statement_id IN (SELECT id FROM statements WHERE run_id = ?)`,
		`DELETE FROM statements WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return "", fmt.Errorf("failed to delete run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit delete: %w", err)
	}
	s.logger.Debug("run deleted", "id", id)
	return id, nil
}

// TableUses lists every saved statement reading or writing the named
// table, most recent run first.
func (s *Store) TableUses(ctx context.Context, table string) ([]TableUse, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT st.run_id, st.idx, st.file, e.direction, e.name
		FROM table_edges e
		JOIN statements st ON st.id = e.statement_id
		JOIN runs r ON r.id = st.run_id
		WHERE e.name = ?
		ORDER BY r.created_at DESC, r.rowid DESC, st.rowid, e.direction`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query table uses: %w", err)
	}
	defer rows.Close()

	var uses []TableUse
	for rows.Next() {
		var u TableUse
		if err := rows.Scan(&u.RunID, &u.Index, &u.File, &u.Direction, &u.Table); err != nil {
			return nil, fmt.Errorf("failed to scan table use: %w", err)
		}
		uses = append(uses, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query table uses: %w", err)
	}
	return uses, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
