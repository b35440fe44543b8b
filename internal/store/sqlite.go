package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	countries   TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_countries (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	code          TEXT NOT NULL,
	boxes         INTEGER NOT NULL DEFAULT 0,
	boxes_skipped INTEGER NOT NULL DEFAULT 0,
	cameras       INTEGER NOT NULL DEFAULT 0,
	path          TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	error_class   TEXT NOT NULL DEFAULT '',
	recorded_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, code)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// StartRun inserts a running run for the given countries.
func (s *SQLiteStore) StartRun(ctx context.Context, countries []string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, countries, status, started_at) VALUES (?, ?, ?, ?)`,
		id, joinCodes(countries), string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Countries: append([]string{}, countries...),
		Status:    RunStatusRunning,
		StartedAt: now,
	}, nil
}

// RecordCountry stores (or replaces) the outcome for one country.
func (s *SQLiteStore) RecordCountry(ctx context.Context, runID string, o CountryOutcome) error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_countries
			(run_id, code, boxes, boxes_skipped, cameras, path, error, error_class, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Code, o.Boxes, o.BoxesSkipped, o.Cameras, o.Path, o.Error, o.ErrorClass, o.RecordedAt,
	)
	return eris.Wrapf(err, "sqlite: record country %s for run %s", o.Code, runID)
}

// CompleteRun sets the final status and summary of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status RunStatus, summary RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		string(status), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// ListRuns returns runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, countries, status, summary, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// ListCountries returns the recorded outcomes for a run, by code.
func (s *SQLiteStore) ListCountries(ctx context.Context, runID string) ([]CountryOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, code, boxes, boxes_skipped, cameras, path, error, error_class, recorded_at
		FROM run_countries WHERE run_id = ? ORDER BY code`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list countries for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []CountryOutcome
	for rows.Next() {
		var o CountryOutcome
		if err := rows.Scan(&o.RunID, &o.Code, &o.Boxes, &o.BoxesSkipped, &o.Cameras,
			&o.Path, &o.Error, &o.ErrorClass, &o.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan country outcome")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list countries iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var countries string
	var summaryJSON sql.NullString
	var finished sql.NullTime

	err := row.Scan(&r.ID, &countries, &r.Status, &summaryJSON, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.Countries = splitCodes(countries)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if summaryJSON.Valid {
		r.Summary = &RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
