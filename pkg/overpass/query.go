package overpass

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BBox is the (south, west, north, east) rectangle an Overpass query is bounded by.
type BBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// String renders the box in Overpass filter order: south,west,north,east.
func (b BBox) String() string {
	return strings.Join([]string{
		formatCoord(b.South),
		formatCoord(b.West),
		formatCoord(b.North),
		formatCoord(b.East),
	}, ",")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// cameraSelectors are the tag filters for speed cameras, mobile cameras and radars.
var cameraSelectors = []string{
	`["highway"="speed_camera"]`,
	`["camera:type"="mobile"]`,
	`["radar"="yes"]`,
}

// BuildQuery returns the Overpass QL query selecting every camera node inside
// the box. The timeout is rounded down to whole seconds (minimum 1).
func BuildQuery(box BBox, timeout time.Duration) string {
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	bbox := box.String()

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", secs)
	for _, sel := range cameraSelectors {
		fmt.Fprintf(&b, "  node%s(%s);\n", sel, bbox)
	}
	b.WriteString(");\nout;\n")
	return b.String()
}
