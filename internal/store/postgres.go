package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const upsertCountrySQL = `INSERT INTO run_countries
	(run_id, code, boxes, boxes_skipped, cameras, path, error, error_class, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (run_id, code) DO UPDATE SET
	boxes = EXCLUDED.boxes,
	boxes_skipped = EXCLUDED.boxes_skipped,
	cameras = EXCLUDED.cameras,
	path = EXCLUDED.path,
	error = EXCLUDED.error,
	error_class = EXCLUDED.error_class,
	recorded_at = EXCLUDED.recorded_at`

const listCountriesSQL = `SELECT run_id, code, boxes, boxes_skipped, cameras, path, error, error_class, recorded_at
FROM run_countries WHERE run_id = $1 ORDER BY code`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := newPoolConfig(connString, poolCfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// newPoolConfig parses connString and applies pool sizing. Statements are
// prepared and cached per connection by pgx's default exec mode.
func newPoolConfig(connString string, poolCfg *PoolConfig) (*pgxpool.Config, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// The harvester is sequential; a small pool is plenty.
	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	return pgxCfg, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	countries   TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
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
	recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, code)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// StartRun inserts a running run for the given countries.
func (s *PostgresStore) StartRun(ctx context.Context, countries []string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, countries, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, joinCodes(countries), string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{
		ID:        id,
		Countries: append([]string{}, countries...),
		Status:    RunStatusRunning,
		StartedAt: now,
	}, nil
}

// RecordCountry upserts the outcome for one country.
func (s *PostgresStore) RecordCountry(ctx context.Context, runID string, o CountryOutcome) error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, upsertCountrySQL,
		runID, o.Code, o.Boxes, o.BoxesSkipped, o.Cameras, o.Path, o.Error, o.ErrorClass, o.RecordedAt,
	)
	return eris.Wrapf(err, "postgres: record country %s for run %s", o.Code, runID)
}

// CompleteRun sets the final status and summary of a run.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status RunStatus, summary RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, finished_at = $3 WHERE id = $4`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

// ListRuns returns runs newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, countries, status, summary, started_at, finished_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var countries, status string
		var summaryJSON []byte
		if err := rows.Scan(&r.ID, &countries, &status, &summaryJSON, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		r.Countries = splitCodes(countries)
		if summaryJSON != nil {
			r.Summary = &RunSummary{}
			if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// ListCountries returns the recorded outcomes for a run, by code.
func (s *PostgresStore) ListCountries(ctx context.Context, runID string) ([]CountryOutcome, error) {
	rows, err := s.pool.Query(ctx, listCountriesSQL, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list countries for run %s", runID)
	}
	defer rows.Close()

	var out []CountryOutcome
	for rows.Next() {
		var o CountryOutcome
		if err := rows.Scan(&o.RunID, &o.Code, &o.Boxes, &o.BoxesSkipped, &o.Cameras,
			&o.Path, &o.Error, &o.ErrorClass, &o.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan country outcome")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list countries iterate")
}
