package output

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-cameras/internal/camera"
)

// Format names accepted in output.formats.
const (
	FormatJSON      = "json"
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shp"
	FormatXLSX      = "xlsx"
)

// Exporter writes cameras in an additional file format. Export returns every
// file it produced, sidecars included.
type Exporter interface {
	Name() string
	Ext() string
	Export(path string, cams []camera.Camera) ([]string, error)
}

// ParseFormats maps format names to exporters. "json" is always written by
// the Writer and yields no exporter. Duplicates are collapsed.
func ParseFormats(names []string) ([]Exporter, error) {
	seen := make(map[string]bool, len(names))
	var out []Exporter
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		switch n {
		case FormatJSON:
		case FormatGeoJSON:
			out = append(out, GeoJSON{})
		case FormatShapefile:
			out = append(out, Shapefile{})
		case FormatXLSX:
			out = append(out, XLSX{})
		default:
			return nil, eris.Errorf("output: unknown format %q", n)
		}
	}
	return out, nil
}

// located returns the cameras that carry both coordinates.
func located(cams []camera.Camera) []camera.Camera {
	out := make([]camera.Camera, 0, len(cams))
	for _, c := range cams {
		if c.HasCoords() {
			out = append(out, c)
		}
	}
	return out
}
