package tenor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO day layout used in record dates.
const DateLayout = "2006-01-02"

// RangeSeparator joins the two ends of a date range representation.
const RangeSeparator = " to "

// Period is an inclusive span of calendar days.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Intersects reports whether p overlaps [from, to]. A zero bound is open.
func (p Period) Intersects(from, to time.Time) bool {
	if !from.IsZero() && p.End.Before(from) {
		return false
	}
	if !to.IsZero() && p.Start.After(to) {
		return false
	}
	return true
}

var (
	monthRe   = regexp.MustCompile(`^([A-Z]{3})(\d{2})$`)
	quarterRe = regexp.MustCompile(`^(\d{2})Q([1-4])$`)
	seasonRe  = regexp.MustCompile(`^(\d{2})(WIN|SUM)$`)
	yearRe    = regexp.MustCompile(`^(CAL|GY|SY)(\d{2})$`)
)

// Resolve maps a generated tenor code to its delivery period. Winter runs
// October to March, summer April to September, the gas year October to
// September and the storage year April to March.
func Resolve(code string) (Period, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if m := monthRe.FindStringSubmatch(code); m != nil {
		for i, name := range monthCodes {
			if name == m[1] {
				start := day(year(m[2]), time.Month(i+1), 1)
				return Period{Start: start, End: start.AddDate(0, 1, -1)}, true
			}
		}
		return Period{}, false
	}
	if m := quarterRe.FindStringSubmatch(code); m != nil {
		q, _ := strconv.Atoi(m[2])
		start := day(year(m[1]), time.Month(3*(q-1)+1), 1)
		return Period{Start: start, End: start.AddDate(0, 3, -1)}, true
	}
	if m := seasonRe.FindStringSubmatch(code); m != nil {
		y := year(m[1])
		if m[2] == "WIN" {
			return span(day(y, time.October, 1), 6), true
		}
		return span(day(y, time.April, 1), 6), true
	}
	if m := yearRe.FindStringSubmatch(code); m != nil {
		y := year(m[2])
		switch m[1] {
		case "CAL":
			return span(day(y, time.January, 1), 12), true
		case "GY":
			return span(day(y, time.October, 1), 12), true
		case "SY":
			return span(day(y, time.April, 1), 12), true
		}
	}
	return Period{}, false
}

// ParseDateRepr interprets a record date: an ISO day, an "A to B" range, or a
// tenor code. Custom codes and malformed values return false.
func ParseDateRepr(s string) (Period, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, false
	}
	if a, b, ok := strings.Cut(s, RangeSeparator); ok {
		start, err1 := time.Parse(DateLayout, strings.TrimSpace(a))
		end, err2 := time.Parse(DateLayout, strings.TrimSpace(b))
		if err1 != nil || err2 != nil || end.Before(start) {
			return Period{}, false
		}
		return Period{Start: start, End: end}, true
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return Period{Start: d, End: d}, true
	}
	return Resolve(s)
}

// FormatRange renders a date range representation.
func FormatRange(start, end time.Time) string {
	return start.Format(DateLayout) + RangeSeparator + end.Format(DateLayout)
}

func span(start time.Time, months int) Period {
	return Period{Start: start, End: start.AddDate(0, months, -1)}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func year(yy string) int {
	n, _ := strconv.Atoi(yy)
	return 2000 + n
}
