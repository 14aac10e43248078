// Package filter narrows a record set through a fixed chain of dependent
// facets: counterparty, point type, point name, tags, free text, date range.
// Each facet offers only the values present in the records that survived the
// facets before it.
package filter

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/tenor"
)

// All is the "no restriction" selection for single-choice facets.
const All = "All"

// State is the full set of user selections. The zero value selects everything.
type State struct {
	Counterparty string   `json:"counterparty,omitempty" schema:"counterparty"`
	PointType    string   `json:"point_type,omitempty" schema:"point_type"`
	PointName    string   `json:"point_name,omitempty" schema:"point_name"`
	Tags         []string `json:"tags,omitempty" schema:"tags"`
	Query        string   `json:"q,omitempty" schema:"q"`
	DateFrom     string   `json:"date_from,omitempty" schema:"date_from"`
	DateTo       string   `json:"date_to,omitempty" schema:"date_to"`
}

// Options are the selectable values of each facet, computed from the records
// reaching that facet. Single-choice facets start with All.
type Options struct {
	Counterparties []string `json:"counterparties"`
	PointTypes     []string `json:"point_types"`
	PointNames     []string `json:"point_names"`
	Tags           []string `json:"tags"`
	Dates          []string `json:"dates"`
}

// Result is the filtered view plus the facet options that produced it.
type Result struct {
	Records []model.Record `json:"records"`
	Options Options        `json:"options"`
}

// Apply runs every facet in order. It never modifies records and keeps the
// input order.
func Apply(records []model.Record, s State) Result {
	var res Result
	cur := records

	res.Options.Counterparties = withAll(distinct(cur, func(r model.Record) []string { return []string{r.Counterparty} }))
	cur = exact(cur, s.Counterparty, func(r model.Record) string { return r.Counterparty })

	res.Options.PointTypes = withAll(distinct(cur, func(r model.Record) []string { return []string{string(r.PointType)} }))
	cur = exact(cur, s.PointType, func(r model.Record) string { return string(r.PointType) })

	res.Options.PointNames = withAll(distinct(cur, func(r model.Record) []string { return []string{r.PointName} }))
	cur = exact(cur, s.PointName, func(r model.Record) string { return r.PointName })

	res.Options.Tags = distinct(cur, func(r model.Record) []string { return r.Tags })
	cur = byTags(cur, s.Tags)

	cur = byQuery(cur, s.Query)

	res.Options.Dates = distinct(cur, func(r model.Record) []string { return []string{r.Date} })
	cur = byDate(cur, s.DateFrom, s.DateTo)

	res.Records = cur
	return res
}

// Records is Apply without the options.
func Records(records []model.Record, s State) []model.Record {
	return Apply(records, s).Records
}

func selected(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != All
}

func exact(records []model.Record, want string, field func(model.Record) string) []model.Record {
	if !selected(want) {
		return records
	}
	want = strings.TrimSpace(want)
	return keep(records, func(r model.Record) bool { return field(r) == want })
}

// byTags keeps records carrying at least one of the wanted tags.
func byTags(records []model.Record, tags []string) []model.Record {
	var wanted []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			wanted = append(wanted, t)
		}
	}
	if len(wanted) == 0 {
		return records
	}
	return keep(records, func(r model.Record) bool {
		for _, t := range wanted {
			if r.HasTag(t) {
				return true
			}
		}
		return false
	})
}

func byQuery(records []model.Record, query string) []model.Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	fold := cases.Fold()
	needle := fold.String(query)
	return keep(records, func(r model.Record) bool {
		for _, f := range r.SearchFields() {
			if strings.Contains(fold.String(f), needle) {
				return true
			}
		}
		return false
	})
}

// byDate keeps records whose period intersects [from, to]. Dates that are
// not ISO days, ranges or tenor codes are compared lexically.
func byDate(records []model.Record, from, to string) []model.Record {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return records
	}
	fromT, fromErr := parseBound(from)
	toT, toErr := parseBound(to)

	return keep(records, func(r model.Record) bool {
		if strings.TrimSpace(r.Date) == "" {
			return false
		}
		if p, ok := tenor.ParseDateRepr(r.Date); ok && fromErr == nil && toErr == nil {
			return p.Intersects(fromT, toT)
		}
		return (from == "" || r.Date >= from) && (to == "" || r.Date <= to)
	})
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(tenor.DateLayout, s)
}

func keep(records []model.Record, fn func(model.Record) bool) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}

func distinct(records []model.Record, values func(model.Record) []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range records {
		for _, v := range values(r) {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func withAll(values []string) []string {
	return append([]string{All}, values...)
}
