package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PointType classifies the network point a record refers to.
type PointType string

const (
	PointTypeVirtual     PointType = "Virtual Point"
	PointTypeCrossborder PointType = "Crossborder Point"
	PointTypeStorage     PointType = "Storage"
	PointTypeCountry     PointType = "Entire Country"
)

// EntireCountry is the point name forced for PointTypeCountry records.
const EntireCountry = "Entire Country"

// PointTypes lists every point type in display order.
var PointTypes = []PointType{PointTypeVirtual, PointTypeCrossborder, PointTypeStorage, PointTypeCountry}

// Valid reports whether p is one of the known point types.
func (p PointType) Valid() bool {
	for _, pt := range PointTypes {
		if p == pt {
			return true
		}
	}
	return false
}

// Quantity is a numeric amount with its unit, used for capacity and volume.
type Quantity struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

// String renders the quantity as "<value> <unit>".
func (q *Quantity) String() string {
	if q == nil {
		return ""
	}
	return strings.TrimSpace(q.Value.String() + " " + q.Unit)
}

// Record is one market-intelligence entry. Name is the identity key.
type Record struct {
	Name         string    `json:"name"`
	Counterparty string    `json:"counterparty"`
	Country      string    `json:"country"`
	PointType    PointType `json:"point_type"`
	PointName    string    `json:"point_name"`
	Date         string    `json:"date"`
	Info         string    `json:"info"`
	Capacity     *Quantity `json:"capacity,omitempty"`
	Volume       *Quantity `json:"volume,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Author       string    `json:"author"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Key returns the identity key of the record.
func (r Record) Key() string {
	return r.Name
}

// TagString returns the tags in their persisted comma-joined form.
func (r Record) TagString() string {
	return JoinTags(r.Tags)
}

// HasTag reports whether the record carries tag (case-sensitive).
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Capacity != nil {
		c := *r.Capacity
		out.Capacity = &c
	}
	if r.Volume != nil {
		v := *r.Volume
		out.Volume = &v
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return out
}

// SearchFields returns the values the free-text filter looks at.
func (r Record) SearchFields() []string {
	return []string{
		r.Info,
		r.Country,
		r.PointName,
		string(r.PointType),
		r.Counterparty,
		r.Date,
		r.TagString(),
	}
}

// IndexOf returns the position of the record named key, or -1.
func IndexOf(records []Record, key string) int {
	for i, r := range records {
		if r.Name == key {
			return i
		}
	}
	return -1
}

// CloneAll deep-copies a record slice.
func CloneAll(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
