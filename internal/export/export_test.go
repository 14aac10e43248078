package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/market-intel/internal/model"
)

func records() []model.Record {
	return []model.Record{
		{
			Name: "r1", Counterparty: "FGSZ", Country: "Hungary", PointType: model.PointTypeVirtual,
			PointName: "MGP", Date: "2025-01-01 to 2025-01-31", Info: "maintenance, planned",
			Volume: &model.Quantity{Value: decimal.RequireFromString("300"), Unit: "GWh"},
			Tags:   []string{"maintenance"},
		},
		{Name: "r2", Country: "Greece", PointType: model.PointTypeCountry, PointName: model.EntireCountry, Date: "CAL26"},
	}
}

func TestSnapshotFilename(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "gas_snapshot_20250304_050607.xlsx", SnapshotFilename(now))
	assert.Equal(t, "gas_snapshot_20250304_050607.csv", CSVFilename(now))
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	data, err := WriteXLSX(records())
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, model.ColName, sheet.Rows[0].Cells[0].String())

	got, err := ParseXLSX(data)
	require.NoError(t, err)
	assert.Equal(t, records(), got)
}

func TestWriteXLSX_Empty(t *testing.T) {
	data, err := WriteXLSX(nil)
	require.NoError(t, err)

	got, err := ParseXLSX(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadXLSX_FirstSheetFallback(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Backup")
	require.NoError(t, err)
	for _, values := range [][]string{
		{"Info", "Name", "Country"},
		{"text", "n1", "Serbia"},
		{"", "", ""},
	} {
		addRow(sheet, values)
	}
	path := filepath.Join(t.TempDir(), "backup.xlsx")
	require.NoError(t, f.Save(path))

	got, err := ReadXLSX(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].Name)
	assert.Equal(t, "Serbia", got[0].Country)
}

func TestReadXLSX_MissingNameColumn(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	addRow(sheet, []string{"Foo", "Bar"})
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.Save(path))

	_, err = ReadXLSX(path)
	assert.Error(t, err)
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))
	_, err := ReadXLSX(path)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	data, err := WriteCSV(records())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Name,Counterparty,Country,Point Type"))
	assert.Contains(t, lines[1], `"maintenance, planned"`)
	assert.Contains(t, lines[1], "300,GWh")
}
