package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-cameras/internal/harvest"
	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/region"
	"github.com/sells-group/osm-cameras/internal/store"
)

func TestFormatSummary(t *testing.T) {
	sum := &harvest.Summary{
		Duration: 95 * time.Second,
		Countries: []harvest.CountryResult{
			{Code: "uk", Boxes: 4, BoxesSkipped: 1, Cameras: 12, Written: &output.Written{Code: "uk", Path: "docs/osm_cameras.json"}},
			{Code: "fr", Boxes: 1, Cameras: 3, Err: errors.New("disk full")},
		},
	}

	var buf bytes.Buffer
	formatSummary(&buf, sum)
	out := buf.String()

	assert.Contains(t, out, "COUNTRY")
	assert.Contains(t, out, "docs/osm_cameras.json")
	assert.Contains(t, out, "error: disk full")
	assert.Contains(t, out, "complete: 1 written, 1 failed, 12 cameras, 1/5 boxes skipped in 1m35s")
}

func TestFormatSummary_Interrupted(t *testing.T) {
	var buf bytes.Buffer
	formatSummary(&buf, &harvest.Summary{Interrupted: true})
	assert.Contains(t, buf.String(), "interrupted: 0 written")
}

func TestFormatRegions(t *testing.T) {
	tbl, err := region.NewTable([]region.Country{
		{Code: "de", Boxes: []region.BoundingBox{region.Box(47.3, 5.9, 55.1, 15)}},
		{Code: "uk", Boxes: []region.BoundingBox{region.Box(49.9, -8.6, 55, -2), region.Box(55, -8.6, 60.9, -2)}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	formatRegions(&buf, tbl)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "CODE")
	assert.Contains(t, lines[1], "Germany")
	assert.Contains(t, lines[1], "47.3")
	assert.True(t, strings.HasPrefix(lines[2], "uk"))
	assert.Contains(t, lines[3], "60.9")
	assert.False(t, strings.HasPrefix(lines[3], "uk"), "continuation rows leave the code blank")
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(3 * time.Minute)
	runs := []store.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Countries:  []string{"uk", "fr"},
			Status:     store.RunStatusComplete,
			Summary:    &store.RunSummary{Countries: 2, Written: 2, Cameras: 41},
			StartedAt:  now,
			FinishedAt: &done,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Countries: []string{"de"},
			Status:    store.RunStatusRunning,
			StartedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "uk,fr")
	assert.Contains(t, out, "3m0s")
	assert.Contains(t, out, "41")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "2025-06-15 10:30")
}

func TestFormatCountryOutcomes(t *testing.T) {
	var buf bytes.Buffer
	formatCountryOutcomes(&buf, []store.CountryOutcome{
		{Code: "uk", Boxes: 4, Cameras: 10, Path: "docs/osm_cameras.json"},
		{Code: "fr", Boxes: 1, Error: "write failed", ErrorClass: "permanent"},
	})
	out := buf.String()
	assert.Contains(t, out, "docs/osm_cameras.json")
	assert.Contains(t, out, "permanent: write failed")
}
