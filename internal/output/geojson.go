package output

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/osm-cameras/internal/camera"
)

// GeoJSON writes a FeatureCollection of Points. Cameras without coordinates
// are omitted.
type GeoJSON struct{}

// Name implements Exporter.
func (GeoJSON) Name() string { return FormatGeoJSON }

// Ext implements Exporter.
func (GeoJSON) Ext() string { return ".geojson" }

// Export implements Exporter.
func (GeoJSON) Export(path string, cams []camera.Camera) ([]string, error) {
	fc, err := FeatureCollection(cams)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: marshal")
	}
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// FeatureCollection converts cameras to GeoJSON features with a bbox.
func FeatureCollection(cams []camera.Camera) (*geojson.FeatureCollection, error) {
	pts := located(cams)
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(pts))}
	if len(pts) == 0 {
		return fc, nil
	}

	bounds := geom.NewBounds(geom.XY)
	for _, c := range pts {
		pt, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{*c.Lon, *c.Lat})
		if err != nil {
			return nil, eris.Wrapf(err, "geojson: point for %s", c.ID)
		}
		bounds.Extend(pt)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       c.ID,
			Geometry: pt,
			Properties: map[string]interface{}{
				"type":       string(c.Type),
				"confidence": c.Confidence,
			},
		})
	}
	fc.BBox = bounds
	return fc, nil
}
