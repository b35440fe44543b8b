// Package metrics records per-run harvest metrics in a Prometheus registry
// and writes them for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"
)

const namespace = "osmcam"

// Fetch outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
)

// Metrics holds all Prometheus metrics for one run.
type Metrics struct {
	reg *prometheus.Registry

	boxFetches     *prometheus.CounterVec
	camerasWritten *prometheus.GaugeVec
	writeFailures  *prometheus.CounterVec
	outsideBBox    *prometheus.CounterVec
	runDuration    prometheus.Gauge
	lastRun        prometheus.Gauge
}

// New creates a fresh registry and registers all run metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		boxFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "box_fetches_total",
				Help:      "Bounding-box fetches by country and outcome",
			},
			[]string{"country", "outcome"},
		),
		camerasWritten: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cameras_written",
				Help:      "Cameras in the last file written per country",
			},
			[]string{"country"},
		),
		writeFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_failures_total",
				Help:      "Country files that could not be written",
			},
			[]string{"country"},
		),
		outsideBBox: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "elements_outside_bbox_total",
				Help:      "Returned elements whose coordinates fall outside the queried box",
			},
			[]string{"country"},
		),
		runDuration: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run",
			},
		),
		lastRun: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// BoxFetched counts one bounding-box fetch.
func (m *Metrics) BoxFetched(country string, ok bool) {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeNoData
	}
	m.boxFetches.WithLabelValues(country, outcome).Inc()
}

// CountryWritten records the number of cameras written for a country.
func (m *Metrics) CountryWritten(country string, cameras int) {
	m.camerasWritten.WithLabelValues(country).Set(float64(cameras))
}

// WriteFailed counts a failed country write.
func (m *Metrics) WriteFailed(country string) {
	m.writeFailures.WithLabelValues(country).Inc()
}

// OutsideBBox counts elements returned outside their query box.
func (m *Metrics) OutsideBBox(country string, n int) {
	if n > 0 {
		m.outsideBBox.WithLabelValues(country).Add(float64(n))
	}
}

// RunFinished records the run duration and completion time.
func (m *Metrics) RunFinished(d time.Duration, at time.Time) {
	m.runDuration.Set(d.Seconds())
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in text exposition format. The write is
// atomic, so the collector never reads a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return eris.Wrapf(err, "metrics: write textfile %s", path)
	}
	return nil
}
