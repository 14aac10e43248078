package export

import (
	"bytes"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/model"
)

// CSVFilename names a CSV snapshot taken at now.
func CSVFilename(now time.Time) string {
	return strings.TrimSuffix(SnapshotFilename(now), ".xlsx") + ".csv"
}

// csvRow is the flat CSV shape of a record.
type csvRow struct {
	Name          string `csv:"Name"`
	Counterparty  string `csv:"Counterparty"`
	Country       string `csv:"Country"`
	PointType     string `csv:"Point Type"`
	PointName     string `csv:"Point Name"`
	Date          string `csv:"Date"`
	Info          string `csv:"Info"`
	CapacityValue string `csv:"Capacity Value"`
	CapacityUnit  string `csv:"Capacity Unit"`
	VolumeValue   string `csv:"Volume Value"`
	VolumeUnit    string `csv:"Volume Unit"`
	Tags          string `csv:"Tags"`
	Author        string `csv:"Author"`
	UpdatedAt     string `csv:"Updated At"`
}

func toCSVRow(r model.Record) *csvRow {
	return &csvRow{
		Name:          r.Field(model.ColName),
		Counterparty:  r.Field(model.ColCounterparty),
		Country:       r.Field(model.ColCountry),
		PointType:     r.Field(model.ColPointType),
		PointName:     r.Field(model.ColPointName),
		Date:          r.Field(model.ColDate),
		Info:          r.Field(model.ColInfo),
		CapacityValue: r.Field(model.ColCapacityValue),
		CapacityUnit:  r.Field(model.ColCapacityUnit),
		VolumeValue:   r.Field(model.ColVolumeValue),
		VolumeUnit:    r.Field(model.ColVolumeUnit),
		Tags:          r.Field(model.ColTags),
		Author:        r.Field(model.ColAuthor),
		UpdatedAt:     r.Field(model.ColUpdatedAt),
	}
}

// WriteCSV renders records as CSV with the snapshot header.
func WriteCSV(records []model.Record) ([]byte, error) {
	rows := make([]*csvRow, len(records))
	for i, r := range records {
		rows[i] = toCSVRow(r)
	}
	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return nil, eris.Wrap(err, "export: write csv")
	}
	return buf.Bytes(), nil
}
