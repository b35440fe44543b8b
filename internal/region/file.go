package region

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// regionFile is the on-disk layout of a region file:
//
//	countries:
//	  - code: fr
//	    boxes:
//	      - [41.3, -5.1, 51.1, 9.6]
type regionFile struct {
	Countries []struct {
		Code  string      `yaml:"code"`
		Boxes [][]float64 `yaml:"boxes"`
	} `yaml:"countries"`
}

// LoadFile reads a region table from a YAML file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	t, err := Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "region: load %s", path)
	}
	return t, nil
}

// Decode parses a YAML region table.
func Decode(r io.Reader) (*Table, error) {
	var doc regionFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "region: decode yaml")
	}
	if len(doc.Countries) == 0 {
		return nil, eris.New("region: file defines no countries")
	}

	countries := make([]Country, 0, len(doc.Countries))
	for _, c := range doc.Countries {
		boxes := make([]BoundingBox, 0, len(c.Boxes))
		for i, b := range c.Boxes {
			if len(b) != 4 {
				return nil, eris.Errorf("region: country %q box %d: want 4 values, got %d", c.Code, i, len(b))
			}
			boxes = append(boxes, Box(b[0], b[1], b[2], b[3]))
		}
		countries = append(countries, Country{Code: c.Code, Boxes: boxes})
	}
	return NewTable(countries)
}

// Load returns the table from path, or the built-in table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
