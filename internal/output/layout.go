// Package output maps country codes to file names and persists result sets.
package output

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrLegacyCollision is returned when a code other than the legacy country
// would be written to the legacy file name.
var ErrLegacyCollision = eris.New("output: refusing to overwrite legacy file")

// CodePlaceholder is replaced by the country code in NameTemplate.
const CodePlaceholder = "{cc}"

// Layout decides where each country's file lives.
type Layout struct {
	Dir           string
	LegacyCountry string
	LegacyFile    string
	NameTemplate  string
}

// DefaultLayout writes to docs/, keeping osm_cameras.json for the UK.
func DefaultLayout() Layout {
	return Layout{
		Dir:           "docs",
		LegacyCountry: "uk",
		LegacyFile:    "osm_cameras.json",
		NameTemplate:  CodePlaceholder + "_osm_cameras.json",
	}
}

// Path returns the output path for code. The legacy country always maps to
// LegacyFile; every other code goes through NameTemplate and must not land on
// the legacy basename.
func (l Layout) Path(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", eris.New("output: empty country code")
	}
	if code == l.LegacyCountry {
		return filepath.Join(l.Dir, l.LegacyFile), nil
	}

	name := strings.ReplaceAll(l.NameTemplate, CodePlaceholder, code)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", eris.Errorf("output: name template %q must produce a bare file name", l.NameTemplate)
	}
	if name == filepath.Base(l.LegacyFile) {
		return "", eris.Wrapf(ErrLegacyCollision, "output: code %q maps to %s", code, name)
	}
	return filepath.Join(l.Dir, name), nil
}
