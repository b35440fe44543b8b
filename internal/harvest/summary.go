package harvest

import (
	"time"

	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/resilience"
	"github.com/sells-group/osm-cameras/internal/store"
)

// CountryResult is the outcome of one country.
type CountryResult struct {
	Code         string
	Boxes        int
	BoxesSkipped int
	Cameras      int
	Written      *output.Written
	Err          error
	Interrupted  bool
}

func (r CountryResult) outcome(runID string, at time.Time) store.CountryOutcome {
	o := store.CountryOutcome{
		RunID:        runID,
		Code:         r.Code,
		Boxes:        r.Boxes,
		BoxesSkipped: r.BoxesSkipped,
		Cameras:      r.Cameras,
		RecordedAt:   at.UTC(),
	}
	if r.Written != nil {
		o.Path = r.Written.Path
	}
	if r.Err != nil {
		o.Error = r.Err.Error()
		o.ErrorClass = resilience.ClassifyError(r.Err)
	}
	return o
}

// Summary tallies a run.
type Summary struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Countries   []CountryResult
	Interrupted bool
}

// Written counts countries whose file was written.
func (s *Summary) Written() int {
	n := 0
	for _, c := range s.Countries {
		if c.Written != nil {
			n++
		}
	}
	return n
}

// Failed counts countries whose write failed.
func (s *Summary) Failed() int {
	n := 0
	for _, c := range s.Countries {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// Cameras totals cameras across written countries.
func (s *Summary) Cameras() int {
	n := 0
	for _, c := range s.Countries {
		if c.Written != nil {
			n += c.Cameras
		}
	}
	return n
}

// Boxes totals boxes attempted.
func (s *Summary) Boxes() int {
	n := 0
	for _, c := range s.Countries {
		n += c.Boxes
	}
	return n
}

// BoxesSkipped totals boxes that returned no data.
func (s *Summary) BoxesSkipped() int {
	n := 0
	for _, c := range s.Countries {
		n += c.BoxesSkipped
	}
	return n
}

// RunSummary converts to the stored form.
func (s *Summary) RunSummary() store.RunSummary {
	return store.RunSummary{
		Countries:    len(s.Countries),
		Written:      s.Written(),
		Failed:       s.Failed(),
		Cameras:      s.Cameras(),
		Boxes:        s.Boxes(),
		BoxesSkipped: s.BoxesSkipped(),
	}
}
