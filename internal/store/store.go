// Package store persists the history of harvest runs and the outcome of each
// country within a run.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when an update targets a missing run.
var ErrNotFound = eris.New("store: not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusComplete    RunStatus = "complete"
	RunStatusInterrupted RunStatus = "interrupted"
)

// Run is one invocation of the harvester.
type Run struct {
	ID         string      `json:"id"`
	Countries  []string    `json:"countries"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// RunSummary holds the tallies recorded when a run completes.
type RunSummary struct {
	Countries    int `json:"countries"`
	Written      int `json:"written"`
	Failed       int `json:"failed"`
	Cameras      int `json:"cameras"`
	Boxes        int `json:"boxes"`
	BoxesSkipped int `json:"boxes_skipped"`
}

// CountryOutcome is the result of processing one country in a run.
type CountryOutcome struct {
	RunID        string    `json:"run_id"`
	Code         string    `json:"code"`
	Boxes        int       `json:"boxes"`
	BoxesSkipped int       `json:"boxes_skipped"`
	Cameras      int       `json:"cameras"`
	Path         string    `json:"path,omitempty"`
	Error        string    `json:"error,omitempty"`
	ErrorClass   string    `json:"error_class,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	StartRun(ctx context.Context, countries []string) (*Run, error)
	RecordCountry(ctx context.Context, runID string, outcome CountryOutcome) error
	CompleteRun(ctx context.Context, runID string, status RunStatus, summary RunSummary) error
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	ListCountries(ctx context.Context, runID string) ([]CountryOutcome, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store for driver and runs migrations. DriverNone is
// not accepted; callers skip the store entirely in that case. pool is only
// used by the Postgres driver and may be nil.
func Open(ctx context.Context, driver, dsn string, pool *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(driver) {
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn, pool)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

const defaultListLimit = 20

func joinCodes(codes []string) string {
	return strings.Join(codes, ",")
}

func splitCodes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
