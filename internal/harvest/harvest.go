// Package harvest runs the fetch loop: for each selected country, query every
// bounding box, normalize and dedupe the cameras, then write the country file.
// Work is strictly sequential to stay polite to the shared Overpass service.
package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-cameras/internal/camera"
	"github.com/sells-group/osm-cameras/internal/metrics"
	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/region"
	"github.com/sells-group/osm-cameras/internal/resilience"
	"github.com/sells-group/osm-cameras/internal/store"
	"github.com/sells-group/osm-cameras/pkg/overpass"
)

// DefaultPause is the courtesy delay after every bounding-box fetch.
const DefaultPause = 2 * time.Second

// Fetcher runs the camera query for one box.
type Fetcher interface {
	Fetch(ctx context.Context, box overpass.BBox) (*overpass.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, box overpass.BBox) (*overpass.Response, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, box overpass.BBox) (*overpass.Response, error) {
	return f(ctx, box)
}

// Writer persists one country's cameras.
type Writer interface {
	EnsureDir() error
	Write(code string, cams []camera.Camera) (*output.Written, error)
}

// Recorder keeps the run history.
type Recorder interface {
	StartRun(ctx context.Context, countries []string) (*store.Run, error)
	RecordCountry(ctx context.Context, runID string, outcome store.CountryOutcome) error
	CompleteRun(ctx context.Context, runID string, status store.RunStatus, summary store.RunSummary) error
}

// Publisher uploads a written file.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// Harvester orchestrates a run.
type Harvester struct {
	fetcher   Fetcher
	writer    Writer
	recorder  Recorder
	publisher Publisher
	metrics   *metrics.Metrics
	pause     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithRecorder stores run history.
func WithRecorder(r Recorder) Option { return func(h *Harvester) { h.recorder = r } }

// WithPublisher uploads every written file.
func WithPublisher(p Publisher) Option { return func(h *Harvester) { h.publisher = p } }

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(h *Harvester) { h.metrics = m } }

// WithPause sets the courtesy delay after each box. Zero disables it.
func WithPause(d time.Duration) Option { return func(h *Harvester) { h.pause = d } }

// WithSleep replaces the sleep used for the courtesy pause.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Harvester) { h.sleep = fn }
}

// New creates a Harvester.
func New(f Fetcher, w Writer, opts ...Option) *Harvester {
	h := &Harvester{
		fetcher: f,
		writer:  w,
		pause:   DefaultPause,
		sleep:   resilience.SleepContext,
		now:     time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run processes countries in order. Failures of a single box, write, upload
// or history call are logged and never stop the run. Cancelling ctx stops
// before the next box; the interrupted country is not written.
func (h *Harvester) Run(ctx context.Context, countries []region.Country) (*Summary, error) {
	if len(countries) == 0 {
		return nil, region.ErrEmptySelection
	}
	log := zap.L().With(zap.String("component", "harvest"))

	if err := h.writer.EnsureDir(); err != nil {
		return nil, err
	}

	start := h.now()
	codes := make([]string, len(countries))
	for i, c := range countries {
		codes[i] = c.Code
	}
	sum := &Summary{StartedAt: start}

	recorder := h.recorder
	if recorder != nil {
		run, err := recorder.StartRun(ctx, codes)
		if err != nil {
			log.Warn("run history unavailable", zap.Error(err))
			recorder = nil
		} else {
			sum.RunID = run.ID
		}
	}

	log.Info("harvest starting", zap.Strings("countries", codes))

	for _, c := range countries {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		res := h.harvestCountry(ctx, c)
		if res.Interrupted {
			sum.Interrupted = true
			break
		}
		sum.Countries = append(sum.Countries, res)

		if recorder != nil {
			if err := recorder.RecordCountry(ctx, sum.RunID, res.outcome(sum.RunID, h.now())); err != nil {
				log.Warn("failed to record country outcome", zap.String("country", c.Code), zap.Error(err))
			}
		}
	}

	sum.Duration = h.now().Sub(start)
	if h.metrics != nil {
		h.metrics.RunFinished(sum.Duration, h.now())
	}

	if recorder != nil {
		status := store.RunStatusComplete
		if sum.Interrupted {
			status = store.RunStatusInterrupted
		}
		if err := recorder.CompleteRun(context.WithoutCancel(ctx), sum.RunID, status, sum.RunSummary()); err != nil {
			log.Warn("failed to record run completion", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.Int("countries", len(sum.Countries)),
		zap.Int("written", sum.Written()),
		zap.Int("failed", sum.Failed()),
		zap.Int("cameras", sum.Cameras()),
		zap.Int("boxes_skipped", sum.BoxesSkipped()),
		zap.Duration("elapsed", sum.Duration),
	}
	if sum.Interrupted {
		log.Warn("harvest interrupted", fields...)
	} else {
		log.Info("harvest complete", fields...)
	}
	return sum, nil
}

func (h *Harvester) harvestCountry(ctx context.Context, c region.Country) CountryResult {
	log := zap.L().With(
		zap.String("component", "harvest"),
		zap.String("country", c.Code),
		zap.String("name", c.Name()),
	)
	res := CountryResult{Code: c.Code, Boxes: len(c.Boxes)}
	log.Info("fetching country", zap.Int("boxes", len(c.Boxes)))

	var cams []camera.Camera
	for i, box := range c.Boxes {
		if ctx.Err() != nil {
			res.Interrupted = true
			return res
		}

		resp, err := h.fetcher.Fetch(ctx, toBBox(box))
		switch {
		case err == nil:
			cams = append(cams, camera.NormalizeAll(resp.Elements)...)
			if n := countOutside(box, resp.Elements); n > 0 {
				log.Debug("elements outside query box", zap.Int("box", i), zap.Int("count", n))
				if h.metrics != nil {
					h.metrics.OutsideBBox(c.Code, n)
				}
			}
			log.Info("box fetched", zap.Int("box", i), zap.Int("elements", len(resp.Elements)))
		case errors.Is(err, overpass.ErrNoData):
			res.BoxesSkipped++
			log.Warn("no data for box, skipping", zap.Int("box", i), zap.Error(err))
		default:
			if ctx.Err() != nil {
				res.Interrupted = true
				return res
			}
			res.BoxesSkipped++
			log.Warn("fetch failed, skipping box", zap.Int("box", i), zap.Error(err))
		}
		if h.metrics != nil {
			h.metrics.BoxFetched(c.Code, err == nil)
		}

		if h.pause > 0 {
			if err := h.sleep(ctx, h.pause); err != nil {
				res.Interrupted = true
				return res
			}
		}
	}

	cams = camera.Dedupe(cams)
	res.Cameras = len(cams)

	written, err := h.writer.Write(c.Code, cams)
	if err != nil {
		res.Err = eris.Wrapf(err, "harvest: write %s", c.Code)
		log.Error("write failed", zap.Error(err))
		if h.metrics != nil {
			h.metrics.WriteFailed(c.Code)
		}
		return res
	}
	res.Written = written
	if h.metrics != nil {
		h.metrics.CountryWritten(c.Code, len(cams))
	}
	counts := camera.CountByType(cams)
	log.Info("country written",
		zap.String("path", written.Path),
		zap.Int("cameras", len(cams)),
		zap.Int("fixed", counts[camera.Fixed]),
		zap.Int("mobile", counts[camera.MobilePossible]),
	)

	if h.publisher != nil {
		for _, p := range written.Files() {
			if err := h.publisher.Publish(ctx, p); err != nil {
				log.Warn("publish failed", zap.String("path", p), zap.Error(err))
			}
		}
	}
	return res
}

func toBBox(b region.BoundingBox) overpass.BBox {
	return overpass.BBox{South: b.LatMin, West: b.LonMin, North: b.LatMax, East: b.LonMax}
}

func countOutside(box region.BoundingBox, els []overpass.Element) int {
	n := 0
	for _, el := range els {
		if el.Lat == nil || el.Lon == nil {
			continue
		}
		if !box.Contains(*el.Lat, *el.Lon) {
			n++
		}
	}
	return n
}
