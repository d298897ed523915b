package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/leapmodel/internal/emit"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

var errNotOpen = errors.New("database not opened")

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore stores runs in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a store. A nil logger discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database and applies migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := migrate(context.Background(), db, s.logger); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state database", "path", path)
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun records a new running run.
func (s *SQLiteStore) CreateRun(ctx context.Context, input string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	run := &Run{
		ID:        uuid.New().String(),
		Input:     input,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("input", input))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Input, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun finishes a run. A nil runErr marks it completed; otherwise
// it is failed with the error text. When state is non-nil its snapshot is
// stored; artifacts are recorded as given.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, state *core.ModelState, results []emit.Result, runErr error) error {
	if s.db == nil {
		return errNotOpen
	}

	status := RunStatusCompleted
	var errText *string
	if runErr != nil {
		status = RunStatusFailed
		msg := runErr.Error()
		errText = &msg
	}

	var sum Summary
	var body []byte
	if state != nil {
		sum = Summary{
			Tables:        len(state.Tables()),
			Relationships: len(state.Edges()),
			Facts:         len(state.TablesWith(core.ClassFact)),
			Dimensions:    len(state.TablesWith(core.ClassDimension)),
		}
		var err error
		if body, err = json.Marshal(state.Snapshot()); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ?, tables = ?, relationships = ?, facts = ?, dimensions = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC(), errText, sum.Tables, sum.Relationships, sum.Facts, sum.Dimensions, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if body != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO snapshots (run_id, body) VALUES (?, ?)`, id, string(body),
		); err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}
	}
	for _, r := range results {
		var artifactErr *string
		if r.Err != nil {
			msg := r.Err.Error()
			artifactErr = &msg
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO artifacts (run_id, name, path, error) VALUES (?, ?, ?, ?)`,
			id, r.Name, r.Path, artifactErr,
		); err != nil {
			return fmt.Errorf("failed to store artifact %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Debug("completed run", slog.String("id", id), slog.String("status", string(status)))
	return nil
}

const runColumns = `id, input, status, started_at, completed_at, error, tables, relationships, facts, dimensions`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString
	if err := row.Scan(&run.ID, &run.Input, &status, &run.StartedAt, &completedAt, &errMsg,
		&run.Tables, &run.Relationships, &run.Facts, &run.Dimensions); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return run, nil
}

// GetRun returns a run by ID. A unique ID prefix is accepted.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`, id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Snapshot returns the stored model snapshot of a run.
func (s *SQLiteStore) Snapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE run_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no snapshot for %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Artifacts returns the artifacts recorded for a run, by name.
func (s *SQLiteStore) Artifacts(ctx context.Context, id string) ([]Artifact, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path, error FROM artifacts WHERE run_id = ? ORDER BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var errMsg sql.NullString
		if err := rows.Scan(&a.Name, &a.Path, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.Error = errMsg.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteRun removes a run with its snapshot and artifacts.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	if s.db == nil {
		return errNotOpen
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
