package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-cameras/internal/config"
	"github.com/sells-group/osm-cameras/internal/store"
)

func recordHistorySleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	orig := historyRetry
	t.Cleanup(func() { historyRetry = orig })

	var sleeps []time.Duration
	historyRetry.Sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func TestOpenHistory_SQLite(t *testing.T) {
	sleeps := recordHistorySleeps(t)
	c := &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "runs.db")}}

	st, err := openHistory(context.Background(), c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, *sleeps)
}

func TestOpenHistory_PermanentFailureNotRetried(t *testing.T) {
	sleeps := recordHistorySleeps(t)
	c := &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "missing", "dir", "runs.db")}}

	_, err := openHistory(context.Background(), c)
	require.Error(t, err)
	assert.Empty(t, *sleeps)
}
