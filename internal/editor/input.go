package editor

import (
	"encoding/json"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/tenor"
)

// Input is the editable content of a record.
type Input struct {
	Name         string          `json:"name"`
	Counterparty string          `json:"counterparty"`
	Country      string          `json:"country"`
	PointType    model.PointType `json:"point_type"`
	PointName    string          `json:"point_name"`
	Period       PeriodInput     `json:"period"`
	Info         string          `json:"info"`
	Capacity     QuantityInput   `json:"capacity"`
	Volume       QuantityInput   `json:"volume"`
	Tags         []string        `json:"tags"`
}

// PeriodInput is one of three ways to state when a record applies. Custom
// wins over Tenor; a tenor code wins over a range, a range over a single day.
type PeriodInput struct {
	// Date is a single ISO day or an "A to B" range.
	Date string `json:"date,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// Tenor must be one of the generated codes.
	Tenor string `json:"tenor,omitempty"`
	// Custom is any period code, stored as typed.
	Custom string `json:"custom,omitempty"`
}

// QuantityInput is an optional amount. Both fields empty means absent.
type QuantityInput struct {
	Value json.Number `json:"value,omitempty"`
	Unit  string      `json:"unit,omitempty"`
}

// InputFrom turns a stored record back into an Input, so callers can change
// a few fields and submit the rest unchanged.
func InputFrom(r model.Record) Input {
	in := Input{
		Name:         r.Name,
		Counterparty: r.Counterparty,
		Country:      r.Country,
		PointType:    r.PointType,
		PointName:    r.PointName,
		Period:       PeriodInput{Custom: r.Date},
		Info:         r.Info,
		Tags:         append([]string(nil), r.Tags...),
	}
	if r.Capacity != nil {
		in.Capacity = QuantityInput{Value: json.Number(r.Capacity.Value.String()), Unit: r.Capacity.Unit}
	}
	if r.Volume != nil {
		in.Volume = QuantityInput{Value: json.Number(r.Volume.Value.String()), Unit: r.Volume.Unit}
	}
	return in
}

var textPolicy = bluemonday.StrictPolicy()

// clean strips markup and surrounding whitespace from user text.
func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// build normalizes in and checks it against the catalog and the tenor
// vocabulary. It returns the record without Author or UpdatedAt.
func build(in Input, cat model.Catalog, vocab []string) (model.Record, error) {
	r := model.Record{
		Name:         clean(in.Name),
		Counterparty: clean(in.Counterparty),
		Country:      strings.TrimSpace(in.Country),
		PointType:    model.PointType(strings.TrimSpace(string(in.PointType))),
		PointName:    clean(in.PointName),
		Info:         clean(in.Info),
	}

	var tags []string
	for _, t := range in.Tags {
		for _, part := range model.SplitTags(t) {
			tags = append(tags, clean(part))
		}
	}
	r.Tags = model.NormalizeTags(tags)

	if r.Name == "" {
		return r, invalid("name", "is required")
	}
	if r.Country == "" {
		return r, invalid("country", "is required")
	}
	if !cat.HasCountry(r.Country) {
		return r, invalid("country", "%q is not a known country", r.Country)
	}
	if r.PointType == "" {
		return r, invalid("point_type", "is required")
	}
	if !r.PointType.Valid() {
		return r, invalid("point_type", "%q is not a known point type", r.PointType)
	}
	if err := checkPointName(&r, cat); err != nil {
		return r, err
	}

	date, err := in.Period.resolve(vocab)
	if err != nil {
		return r, err
	}
	r.Date = date

	if r.Capacity, err = in.Capacity.parse("capacity", cat.HasCapacityUnit); err != nil {
		return r, err
	}
	if r.Volume, err = in.Volume.parse("volume", cat.HasVolumeUnit); err != nil {
		return r, err
	}
	return r, nil
}

func checkPointName(r *model.Record, cat model.Catalog) error {
	if r.PointType == model.PointTypeCountry {
		r.PointName = model.EntireCountry
		return nil
	}
	if r.PointName == "" {
		return invalid("point_name", "is required for %s", r.PointType)
	}
	allowed, fixed := cat.PointNames(r.PointType)
	if !fixed || cat.AllowCustomPoints {
		return nil
	}
	for _, p := range allowed {
		if p == r.PointName {
			return nil
		}
	}
	return invalid("point_name", "%q is not a known %s (one of %s)", r.PointName, r.PointType, strings.Join(allowed, ", "))
}

func (p PeriodInput) resolve(vocab []string) (string, error) {
	custom := strings.TrimSpace(p.Custom)
	code := strings.TrimSpace(p.Tenor)
	from, to := strings.TrimSpace(p.From), strings.TrimSpace(p.To)
	date := strings.TrimSpace(p.Date)

	switch {
	case custom != "":
		return tenor.Choose(code, custom), nil
	case code != "":
		if !tenor.Contains(vocab, code) {
			return "", invalid("date", "%q is not an offered period code", code)
		}
		return code, nil
	case from != "" || to != "":
		start, err := time.Parse(tenor.DateLayout, from)
		if err != nil {
			return "", invalid("date", "range start %q is not a YYYY-MM-DD date", from)
		}
		end, err := time.Parse(tenor.DateLayout, to)
		if err != nil {
			return "", invalid("date", "range end %q is not a YYYY-MM-DD date", to)
		}
		if end.Before(start) {
			return "", invalid("date", "range ends before it starts")
		}
		return tenor.FormatRange(start, end), nil
	case date != "":
		if _, ok := tenor.ParseDateRepr(date); !ok {
			return "", invalid("date", "%q is not a date, a date range or a period code", date)
		}
		return date, nil
	default:
		return "", nil
	}
}

func (q QuantityInput) parse(field string, knownUnit func(string) bool) (*model.Quantity, error) {
	value := strings.TrimSpace(string(q.Value))
	unit := strings.TrimSpace(q.Unit)
	if value == "" && unit == "" {
		return nil, nil
	}
	if value == "" {
		return nil, invalid(field, "unit given without a value")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, invalid(field, "%q is not a number", value)
	}
	if d.IsNegative() {
		return nil, invalid(field, "must not be negative")
	}
	if unit == "" {
		return nil, invalid(field, "unit is required")
	}
	if !knownUnit(unit) {
		return nil, invalid(field, "%q is not an accepted unit", unit)
	}
	return &model.Quantity{Value: d, Unit: unit}, nil
}
