package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-cameras/internal/camera"
)

func ptr(v float64) *float64 { return &v }

func testLayout(t *testing.T) Layout {
	t.Helper()
	l := DefaultLayout()
	l.Dir = filepath.Join(t.TempDir(), "docs")
	return l
}

func sampleCameras() []camera.Camera {
	return []camera.Camera{
		{ID: "osm-100", Lat: ptr(48.85), Lon: ptr(2.35), Type: camera.Fixed, Confidence: 80},
		{ID: "osm-101", Lat: ptr(45.76), Lon: ptr(4.83), Type: camera.MobilePossible, Confidence: 60},
		{ID: "osm-102", Lat: nil, Lon: nil, Type: camera.MobilePossible, Confidence: 60},
	}
}

func TestWriter_WritesIndentedJSON(t *testing.T) {
	l := testLayout(t)
	w := NewWriter(l)

	written, err := w.Write("fr", sampleCameras()[:1])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Dir, "fr_osm_cameras.json"), written.Path)
	assert.Equal(t, 1, written.Cameras)
	assert.Equal(t, []string{written.Path}, written.Files())

	data, err := os.ReadFile(written.Path)
	require.NoError(t, err)
	want := `{
  "results": [
    {
      "id": "osm-100",
      "lat": 48.85,
      "lon": 2.35,
      "type": "fixed_camera",
      "confidence": 80
    }
  ]
}`
	assert.Equal(t, want, string(data))
}

func TestWriter_EmptyStillWritten(t *testing.T) {
	l := testLayout(t)
	w := NewWriter(l)

	written, err := w.Write("uk", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Dir, "osm_cameras.json"), written.Path)

	data, err := os.ReadFile(written.Path)
	require.NoError(t, err)
	var rs camera.ResultSet
	require.NoError(t, json.Unmarshal(data, &rs))
	assert.NotNil(t, rs.Results)
	assert.Empty(t, rs.Results)
	assert.JSONEq(t, `{"results": []}`, string(data))
}

func TestWriter_NullCoordinates(t *testing.T) {
	w := NewWriter(testLayout(t))
	written, err := w.Write("de", sampleCameras()[2:])
	require.NoError(t, err)

	data, err := os.ReadFile(written.Path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[{"id":"osm-102","lat":null,"lon":null,"type":"mobile_possible_camera","confidence":60}]}`, string(data))
}

func TestWriter_LegacyCollisionSkipsWrite(t *testing.T) {
	l := testLayout(t)
	l.NameTemplate = "osm_cameras.json"
	w := NewWriter(l)

	_, err := w.Write("fr", sampleCameras())
	assert.ErrorIs(t, err, ErrLegacyCollision)
	_, statErr := os.Stat(filepath.Join(l.Dir, "osm_cameras.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriter_OverwritesAndLeavesNoTemp(t *testing.T) {
	l := testLayout(t)
	w := NewWriter(l)

	_, err := w.Write("fr", sampleCameras())
	require.NoError(t, err)
	written, err := w.Write("fr", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(written.Path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results": []}`, string(data))

	entries, err := os.ReadDir(l.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fr_osm_cameras.json", entries[0].Name())
}

func TestWriter_IOErrorReturned(t *testing.T) {
	l := testLayout(t)
	require.NoError(t, os.MkdirAll(filepath.Join(l.Dir, "fr_osm_cameras.json"), 0o755))
	w := NewWriter(l)

	_, err := w.Write("fr", sampleCameras())
	require.Error(t, err)

	written, err := w.Write("de", sampleCameras())
	require.NoError(t, err)
	assert.FileExists(t, written.Path)
}

func TestWriter_EnsureDirIdempotent(t *testing.T) {
	l := testLayout(t)
	w := NewWriter(l)
	require.NoError(t, w.EnsureDir())
	require.NoError(t, w.EnsureDir())
	assert.DirExists(t, l.Dir)
}

func TestWriter_ExtraFormats(t *testing.T) {
	l := testLayout(t)
	exporters, err := ParseFormats([]string{"json", "geojson", "shp", "xlsx"})
	require.NoError(t, err)
	w := NewWriter(l, exporters...)

	written, err := w.Write("fr", sampleCameras())
	require.NoError(t, err)
	base := filepath.Join(l.Dir, "fr_osm_cameras")
	assert.Equal(t, []string{
		base + ".geojson",
		base + ".shp", base + ".shx", base + ".dbf",
		base + ".xlsx",
	}, written.Extras)
	assert.Equal(t, base+".json", written.Files()[0])
	assert.Contains(t, written.Files(), base+".shx")
	assert.Contains(t, written.Files(), base+".dbf")
	for _, p := range written.Files() {
		assert.FileExists(t, p)
	}
	assert.NoFileExists(t, base+"dbf")
}

func TestParseFormats(t *testing.T) {
	ex, err := ParseFormats([]string{"JSON", " geojson ", "geojson", ""})
	require.NoError(t, err)
	require.Len(t, ex, 1)
	assert.Equal(t, FormatGeoJSON, ex[0].Name())

	ex, err = ParseFormats(nil)
	require.NoError(t, err)
	assert.Empty(t, ex)

	_, err = ParseFormats([]string{"kml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kml")
}
