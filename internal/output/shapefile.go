package output

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-cameras/internal/camera"
)

// Shapefile attribute columns.
var shapefileFields = []shp.Field{
	shp.StringField("ID", 32),
	shp.StringField("TYPE", 32),
	shp.NumberField("CONF", 4),
}

// Shapefile writes a point shapefile (.shp, .shx, .dbf). Cameras without
// coordinates are omitted.
type Shapefile struct{}

// Name implements Exporter.
func (Shapefile) Name() string { return FormatShapefile }

// Ext implements Exporter.
func (Shapefile) Ext() string { return ".shp" }

// Export implements Exporter. It returns the .shp, .shx and .dbf paths.
func (Shapefile) Export(path string, cams []camera.Camera) ([]string, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	w, err := shp.Create(base+".shp", shp.POINT)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: create %s", path)
	}

	// go-shp v0.1.1 names the attribute table "<base>dbf" (no dot).
	rawDBF := base + "dbf"
	if err := writeShapes(w, cams); err != nil {
		w.Close()
		_ = os.Remove(rawDBF)
		return nil, err
	}
	// Close writes the headers, so it must run before the rename.
	w.Close()

	dbf := base + ".dbf"
	if err := os.Rename(rawDBF, dbf); err != nil {
		_ = os.Remove(rawDBF)
		return nil, eris.Wrapf(err, "shapefile: rename attribute table to %s", dbf)
	}
	return []string{base + ".shp", base + ".shx", dbf}, nil
}

func writeShapes(w *shp.Writer, cams []camera.Camera) error {
	if err := w.SetFields(shapefileFields); err != nil {
		return eris.Wrap(err, "shapefile: set fields")
	}
	for _, c := range located(cams) {
		row := int(w.Write(&shp.Point{X: *c.Lon, Y: *c.Lat}))
		attrs := []interface{}{c.ID, string(c.Type), c.Confidence}
		for i, v := range attrs {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return eris.Wrapf(err, "shapefile: attribute %d for %s", i, c.ID)
			}
		}
	}
	return nil
}
