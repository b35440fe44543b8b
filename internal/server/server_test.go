package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/region"
)

func newTestServer(t *testing.T) (*httptest.Server, output.Layout) {
	t.Helper()
	l := output.DefaultLayout()
	l.Dir = t.TempDir()

	tbl, err := region.NewTable([]region.Country{
		{Code: "uk", Boxes: []region.BoundingBox{region.Box(49.9, -8.6, 55.0, -2.0)}},
		{Code: "fr", Boxes: []region.BoundingBox{region.Box(41.3, -5.1, 51.1, 9.6)}},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(New(tbl, l, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, l
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCountries(t *testing.T) {
	srv, l := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(l.Dir, "osm_cameras.json"), []byte(`{"results": []}`), 0o644))

	resp, err := http.Get(srv.URL + "/api/countries")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []CountryInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "uk", got[0].Code)
	assert.True(t, got[0].Available)
	assert.NotNil(t, got[0].UpdatedAt)
	assert.Equal(t, "fr", got[1].Code)
	assert.Equal(t, "France", got[1].Name)
	assert.False(t, got[1].Available)
	assert.Equal(t, filepath.Join(l.Dir, "fr_osm_cameras.json"), got[1].File)
}

func TestCameras(t *testing.T) {
	srv, l := newTestServer(t)
	doc := `{"results": [{"id": "osm-1", "lat": 1, "lon": 2, "type": "fixed_camera", "confidence": 80}]}`
	require.NoError(t, os.WriteFile(filepath.Join(l.Dir, "fr_osm_cameras.json"), []byte(doc), 0o644))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"written", "/api/cameras/fr", http.StatusOK},
		{"upper case code", "/api/cameras/FR", http.StatusOK},
		{"not written yet", "/api/cameras/uk", http.StatusNotFound},
		{"unknown code", "/api/cameras/zz", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/countries", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
