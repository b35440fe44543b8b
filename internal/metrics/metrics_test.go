package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.BoxFetched("uk", true)
	m.BoxFetched("uk", false)
	m.BoxFetched("uk", false)
	m.CountryWritten("fr", 12)
	m.CountryWritten("fr", 3)
	m.WriteFailed("de")
	m.OutsideBBox("fr", 2)
	m.OutsideBBox("fr", 0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.boxFetches.WithLabelValues("uk", OutcomeOK)), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.boxFetches.WithLabelValues("uk", OutcomeNoData)), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(m.camerasWritten.WithLabelValues("fr")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.writeFailures.WithLabelValues("de")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.outsideBBox.WithLabelValues("fr")), 1e-9)
}

func TestMetrics_RunFinished(t *testing.T) {
	m := New()
	at := time.Unix(1700000000, 0)
	m.RunFinished(90*time.Second, at)

	assert.InDelta(t, 90, testutil.ToFloat64(m.runDuration), 1e-9)
	assert.InDelta(t, 1700000000, testutil.ToFloat64(m.lastRun), 1e-9)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.WriteFailed("fr")

	n, err := testutil.GatherAndCount(b.Registry(), "osmcam_write_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = testutil.GatherAndCount(a.Registry(), "osmcam_write_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.BoxFetched("fr", true)
	m.CountryWritten("fr", 2)

	path := filepath.Join(t.TempDir(), "osm_cameras.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.True(t, strings.Contains(body, `osmcam_box_fetches_total{country="fr",outcome="ok"} 1`), body)
	assert.True(t, strings.Contains(body, `osmcam_cameras_written{country="fr"} 2`), body)
}

func TestMetrics_WriteTextfile_BadDir(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	require.Error(t, err)
}
