// Package export writes record snapshots as xlsx workbooks and reads them back.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/market-intel/internal/model"
)

// SheetName is the worksheet the snapshot is written to.
const SheetName = "MarketIntelligenceGAS"

// SnapshotFilename names a snapshot taken at now.
func SnapshotFilename(now time.Time) string {
	return fmt.Sprintf("gas_snapshot_%s.xlsx", now.Format("20060102_150405"))
}

// WriteXLSX renders records as a single-sheet workbook with a header row.
func WriteXLSX(records []model.Record) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, model.RecordHeader)
	for _, r := range records {
		addRow(sheet, model.EncodeRecord(r))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write workbook")
	}
	return buf.Bytes(), nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// ReadXLSX reads a snapshot file back into records. The first row is the
// header; blank rows are skipped.
func ReadXLSX(path string) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open workbook")
	}
	return readFile(f)
}

// ParseXLSX is ReadXLSX for an in-memory workbook.
func ParseXLSX(data []byte) ([]model.Record, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "export: parse workbook")
	}
	return readFile(f)
}

func readFile(f *xlsx.File) ([]model.Record, error) {
	sheet, err := getSheet(f)
	if err != nil {
		return nil, err
	}

	records := []model.Record{}
	var codec *model.RowCodec
	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if codec == nil {
			codec = model.NewRowCodec(cells)
			if !codec.Has(model.ColName) {
				return nil, eris.Errorf("export: sheet %q has no %q column", sheet.Name, model.ColName)
			}
			continue
		}
		r := codec.DecodeRecord(cells)
		if r.Name == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// getSheet prefers the snapshot sheet and falls back to the first one.
func getSheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if sheet, ok := f.Sheet[SheetName]; ok {
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("export: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
