// Package camera defines the normalized camera record written to disk and the
// rules that turn raw Overpass elements into it.
package camera

import (
	"strconv"

	"github.com/sells-group/osm-cameras/pkg/overpass"
)

// Category is the kind of camera.
type Category string

const (
	// Fixed is a permanently installed speed camera (highway=speed_camera).
	Fixed Category = "fixed_camera"
	// MobilePossible is a mobile camera location or a radar.
	MobilePossible Category = "mobile_possible_camera"
)

// Confidence scores per category.
const (
	ConfidenceFixed  = 80
	ConfidenceMobile = 60
)

// IDPrefix is prepended to the OSM node id.
const IDPrefix = "osm-"

// Camera is one output record. Lat and Lon stay nil when the source omits
// them and serialize as null.
type Camera struct {
	ID         string   `json:"id"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Type       Category `json:"type"`
	Confidence int      `json:"confidence"`
}

// HasCoords reports whether both coordinates are present.
func (c Camera) HasCoords() bool {
	return c.Lat != nil && c.Lon != nil
}

// ResultSet is the top-level document of a country file.
type ResultSet struct {
	Results []Camera `json:"results"`
}

// Normalize maps a raw element to a Camera.
func Normalize(el overpass.Element) Camera {
	c := Camera{
		ID:         IDPrefix + strconv.FormatInt(el.ID, 10),
		Type:       MobilePossible,
		Confidence: ConfidenceMobile,
	}
	if el.Tag("highway") == "speed_camera" {
		c.Type = Fixed
		c.Confidence = ConfidenceFixed
	}
	if el.Lat != nil {
		lat := *el.Lat
		c.Lat = &lat
	}
	if el.Lon != nil {
		lon := *el.Lon
		c.Lon = &lon
	}
	return c
}

// NormalizeAll maps every element of a response.
func NormalizeAll(elements []overpass.Element) []Camera {
	out := make([]Camera, 0, len(elements))
	for _, el := range elements {
		out = append(out, Normalize(el))
	}
	return out
}

// Dedupe collapses cameras sharing an ID. The surviving entry carries the
// values of the last occurrence and sits at the position of the first.
func Dedupe(cams []Camera) []Camera {
	index := make(map[string]int, len(cams))
	out := make([]Camera, 0, len(cams))
	for _, c := range cams {
		if i, ok := index[c.ID]; ok {
			out[i] = c
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

// CountByType tallies cameras per category.
func CountByType(cams []Camera) map[Category]int {
	counts := make(map[Category]int, 2)
	for _, c := range cams {
		counts[c.Type]++
	}
	return counts
}
