package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Spreadsheet column headers for records. The first twelve match the
// historical MarketIntelligenceGAS sheet layout.
const (
	ColName          = "Name"
	ColCounterparty  = "Counterparty"
	ColCountry       = "Country"
	ColPointType     = "Point Type"
	ColPointName     = "Point Name"
	ColDate          = "Date"
	ColInfo          = "Info"
	ColCapacityValue = "Capacity Value"
	ColCapacityUnit  = "Capacity Unit"
	ColVolumeValue   = "Volume Value"
	ColVolumeUnit    = "Volume Unit"
	ColTags          = "Tags"
	ColAuthor        = "Author"
	ColUpdatedAt     = "Updated At"
)

// RecordHeader is the column order written to sheets and xlsx exports.
var RecordHeader = []string{
	ColName, ColCounterparty, ColCountry, ColPointType, ColPointName, ColDate, ColInfo,
	ColCapacityValue, ColCapacityUnit, ColVolumeValue, ColVolumeUnit, ColTags,
	ColAuthor, ColUpdatedAt,
}

// History sheet column headers.
const (
	ColTimestamp = "Timestamp"
	ColAction    = "Action"
	ColData      = "Data"
	ColOldData   = "Old Data"
	ColComment   = "Comment"
	ColUser      = "User"
	ColID        = "ID"
)

// AuditHeader is the column order of the history sheet.
var AuditHeader = []string{
	ColTimestamp, ColAction, ColName, ColPointName, ColData, ColOldData, ColComment, ColUser, ColID,
}

// Field returns the persisted string form of the named column, or "" for
// unknown columns.
func (r Record) Field(column string) string {
	switch column {
	case ColName:
		return r.Name
	case ColCounterparty:
		return r.Counterparty
	case ColCountry:
		return r.Country
	case ColPointType:
		return string(r.PointType)
	case ColPointName:
		return r.PointName
	case ColDate:
		return r.Date
	case ColInfo:
		return r.Info
	case ColCapacityValue:
		return quantityValue(r.Capacity)
	case ColCapacityUnit:
		return quantityUnit(r.Capacity)
	case ColVolumeValue:
		return quantityValue(r.Volume)
	case ColVolumeUnit:
		return quantityUnit(r.Volume)
	case ColTags:
		return r.TagString()
	case ColAuthor:
		return r.Author
	case ColUpdatedAt:
		if r.UpdatedAt.IsZero() {
			return ""
		}
		return r.UpdatedAt.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// EncodeRecord renders a record as a row in RecordHeader order.
func EncodeRecord(r Record) []string {
	row := make([]string, len(RecordHeader))
	for i, col := range RecordHeader {
		row[i] = r.Field(col)
	}
	return row
}

// RowCodec decodes rows using a header read from the sheet, so column order
// and missing columns in the source do not matter.
type RowCodec struct {
	index map[string]int
}

// NewRowCodec indexes a header row. Header cells are matched after trimming.
func NewRowCodec(header []string) *RowCodec {
	c := &RowCodec{index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := c.index[h]; !dup {
			c.index[h] = i
		}
	}
	return c
}

// Has reports whether the header contained column.
func (c *RowCodec) Has(column string) bool {
	_, ok := c.index[column]
	return ok
}

// Get returns the trimmed cell for column, or "" when the column or the cell
// is missing.
func (c *RowCodec) Get(row []string, column string) string {
	i, ok := c.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// DecodeRecord builds a record from a row. Absent or malformed optional
// fields decode to their zero value.
func (c *RowCodec) DecodeRecord(row []string) Record {
	r := Record{
		Name:         c.Get(row, ColName),
		Counterparty: c.Get(row, ColCounterparty),
		Country:      c.Get(row, ColCountry),
		PointType:    PointType(c.Get(row, ColPointType)),
		PointName:    c.Get(row, ColPointName),
		Date:         c.Get(row, ColDate),
		Info:         c.Get(row, ColInfo),
		Capacity:     parseQuantity(c.Get(row, ColCapacityValue), c.Get(row, ColCapacityUnit)),
		Volume:       parseQuantity(c.Get(row, ColVolumeValue), c.Get(row, ColVolumeUnit)),
		Tags:         SplitTags(c.Get(row, ColTags)),
		Author:       c.Get(row, ColAuthor),
	}
	if ts := c.Get(row, ColUpdatedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.UpdatedAt = t.UTC()
		}
	}
	return r
}

// EncodeAudit renders an audit entry as a row in AuditHeader order.
func EncodeAudit(e AuditEntry) []string {
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Action),
		e.Key,
		e.PointName,
		e.Data,
		e.OldData,
		e.Comment,
		e.User,
		e.ID,
	}
}

// DecodeAudit builds an audit entry from a history row.
func (c *RowCodec) DecodeAudit(row []string) AuditEntry {
	e := AuditEntry{
		ID:        c.Get(row, ColID),
		Action:    Action(c.Get(row, ColAction)),
		Key:       c.Get(row, ColName),
		PointName: c.Get(row, ColPointName),
		Data:      c.Get(row, ColData),
		OldData:   c.Get(row, ColOldData),
		Comment:   c.Get(row, ColComment),
		User:      c.Get(row, ColUser),
	}
	if ts := c.Get(row, ColTimestamp); ts != "" {
		e.Timestamp = parseTimestamp(ts)
	}
	return e
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO form older history
// rows were written with (interpreted as UTC).
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseQuantity(value, unit string) *Quantity {
	if value == "" && unit == "" {
		return nil
	}
	q := &Quantity{Unit: unit}
	if value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil
		}
		q.Value = d
	}
	return q
}

func quantityValue(q *Quantity) string {
	if q == nil {
		return ""
	}
	return q.Value.String()
}

func quantityUnit(q *Quantity) string {
	if q == nil {
		return ""
	}
	return q.Unit
}
