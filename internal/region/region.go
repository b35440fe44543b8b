// Package region holds the country table: which bounding boxes are queried for
// each country code, and how a run's subset of countries is selected.
package region

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrEmptySelection is returned by Select when no table entry matches.
var ErrEmptySelection = eris.New("region: no countries selected")

var codePattern = regexp.MustCompile(`^[a-z]{2}$`)

// BoundingBox is a rectangle in WGS84 degrees. LatMin <= LatMax and
// LonMin <= LonMax are preconditions checked by Validate.
type BoundingBox struct {
	LatMin float64
	LonMin float64
	LatMax float64
	LonMax float64
}

// Box builds a BoundingBox from (lat_min, lon_min, lat_max, lon_max).
func Box(latMin, lonMin, latMax, lonMax float64) BoundingBox {
	return BoundingBox{LatMin: latMin, LonMin: lonMin, LatMax: latMax, LonMax: lonMax}
}

// Validate checks the ordering precondition.
func (b BoundingBox) Validate() error {
	if b.LatMin > b.LatMax {
		return eris.Errorf("region: lat_min %g > lat_max %g", b.LatMin, b.LatMax)
	}
	if b.LonMin > b.LonMax {
		return eris.Errorf("region: lon_min %g > lon_max %g", b.LonMin, b.LonMax)
	}
	if b.LatMin < -90 || b.LatMax > 90 || b.LonMin < -180 || b.LonMax > 180 {
		return eris.Errorf("region: box %v outside WGS84 range", b)
	}
	return nil
}

// Bounds returns the box as XY bounds (X = longitude, Y = latitude).
func (b BoundingBox) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.LonMin, b.LatMin, b.LonMax, b.LatMax)
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.Bounds().OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// Country maps a two-letter lowercase code to the boxes covering it.
type Country struct {
	Code  string
	Boxes []BoundingBox
}

// Name returns the English display name for the country.
func (c Country) Name() string {
	return DisplayName(c.Code)
}

// Table is an ordered, immutable list of countries. Iteration follows
// declaration order so runs are deterministic.
type Table struct {
	countries []Country
	index     map[string]int
}

// NewTable validates countries and builds a Table. Codes must be unique and
// each country needs at least one valid box.
func NewTable(countries []Country) (*Table, error) {
	t := &Table{
		countries: make([]Country, 0, len(countries)),
		index:     make(map[string]int, len(countries)),
	}
	for _, c := range countries {
		code := strings.ToLower(strings.TrimSpace(c.Code))
		if !codePattern.MatchString(code) {
			return nil, eris.Errorf("region: invalid country code %q", c.Code)
		}
		if _, dup := t.index[code]; dup {
			return nil, eris.Errorf("region: duplicate country code %q", code)
		}
		if len(c.Boxes) == 0 {
			return nil, eris.Errorf("region: country %q has no bounding boxes", code)
		}
		boxes := make([]BoundingBox, len(c.Boxes))
		for i, b := range c.Boxes {
			if err := b.Validate(); err != nil {
				return nil, eris.Wrapf(err, "region: country %q box %d", code, i)
			}
			boxes[i] = b
		}
		t.index[code] = len(t.countries)
		t.countries = append(t.countries, Country{Code: code, Boxes: boxes})
	}
	return t, nil
}

// All returns a copy of every country in table order.
func (t *Table) All() []Country {
	out := make([]Country, len(t.countries))
	for i, c := range t.countries {
		out[i] = c.clone()
	}
	return out
}

// Codes returns every country code in table order.
func (t *Table) Codes() []string {
	out := make([]string, len(t.countries))
	for i, c := range t.countries {
		out[i] = c.Code
	}
	return out
}

// Get looks up a country by code.
func (t *Table) Get(code string) (Country, bool) {
	i, ok := t.index[strings.ToLower(code)]
	if !ok {
		return Country{}, false
	}
	return t.countries[i].clone(), true
}

func (c Country) clone() Country {
	c.Boxes = append([]BoundingBox(nil), c.Boxes...)
	return c
}

// Len returns the number of countries.
func (t *Table) Len() int {
	return len(t.countries)
}

// DisplayName returns the English name for a country code, falling back to
// the upper-cased code when the region is unknown.
func DisplayName(code string) string {
	upper := strings.ToUpper(code)
	r, err := language.ParseRegion(upper)
	if err != nil {
		return upper
	}
	name := display.Regions(language.English).Name(r)
	if name == "" {
		return upper
	}
	return name
}
