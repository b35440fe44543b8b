package output

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/osm-cameras/internal/camera"
)

// XLSXSheet is the name of the single worksheet.
const XLSXSheet = "cameras"

var xlsxHeader = []string{"id", "lat", "lon", "type", "confidence"}

// XLSX writes a spreadsheet with one row per camera. Missing coordinates
// leave the cell empty.
type XLSX struct{}

// Name implements Exporter.
func (XLSX) Name() string { return FormatXLSX }

// Ext implements Exporter.
func (XLSX) Ext() string { return ".xlsx" }

// Export implements Exporter.
func (XLSX) Export(path string, cams []camera.Camera) ([]string, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(XLSXSheet)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, c := range cams {
		row := sheet.AddRow()
		row.AddCell().SetString(c.ID)
		setOptionalFloat(row.AddCell(), c.Lat)
		setOptionalFloat(row.AddCell(), c.Lon)
		row.AddCell().SetString(string(c.Type))
		row.AddCell().SetInt(c.Confidence)
	}

	if err := f.Save(path); err != nil {
		return nil, eris.Wrapf(err, "xlsx: save %s", path)
	}
	return []string{path}, nil
}

func setOptionalFloat(cell *xlsx.Cell, v *float64) {
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetFloat(*v)
}
