package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-cameras/internal/camera"
)

// Written describes the files produced for one country.
type Written struct {
	Code    string
	Path    string
	Extras  []string
	Cameras int
}

// Files returns the JSON file followed by any extra-format files.
func (w *Written) Files() []string {
	return append([]string{w.Path}, w.Extras...)
}

// Writer persists one country's cameras as {"results": [...]}, plus any
// configured extra formats next to it.
type Writer struct {
	layout    Layout
	exporters []Exporter

	dirOnce sync.Once
	dirErr  error
}

// NewWriter creates a Writer.
func NewWriter(layout Layout, exporters ...Exporter) *Writer {
	return &Writer{layout: layout, exporters: exporters}
}

// EnsureDir creates the output directory. Only the first call does any work.
func (w *Writer) EnsureDir() error {
	w.dirOnce.Do(func() {
		if err := os.MkdirAll(w.layout.Dir, 0o755); err != nil {
			w.dirErr = eris.Wrapf(err, "output: create dir %s", w.layout.Dir)
		}
	})
	return w.dirErr
}

// Write writes the country file, even when cams is empty. Extra formats are
// best effort: failures are logged and left out of Written.Extras.
func (w *Writer) Write(code string, cams []camera.Camera) (*Written, error) {
	path, err := w.layout.Path(code)
	if err != nil {
		return nil, err
	}
	if err := w.EnsureDir(); err != nil {
		return nil, err
	}

	if cams == nil {
		cams = []camera.Camera{}
	}
	data, err := json.MarshalIndent(camera.ResultSet{Results: cams}, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "output: marshal results")
	}
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, eris.Wrapf(err, "output: write %s", path)
	}

	written := &Written{Code: code, Path: path, Cameras: len(cams)}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ex := range w.exporters {
		p := base + ex.Ext()
		files, err := ex.Export(p, cams)
		if err != nil {
			zap.L().Warn("output: extra format failed",
				zap.String("country", code),
				zap.String("format", ex.Name()),
				zap.Error(err),
			)
			continue
		}
		written.Extras = append(written.Extras, files...)
	}
	return written, nil
}

// WriteFileAtomic writes data to a temp file in path's directory and renames
// it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return eris.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrap(err, "rename temp file")
	}
	return nil
}
