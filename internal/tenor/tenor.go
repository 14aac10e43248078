// Package tenor generates and interprets energy-trading period codes
// (months, quarters, seasons, calendar, gas and storage years).
package tenor

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultWindow is the number of years the generated vocabulary covers.
const DefaultWindow = 3

var monthCodes = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// Generate returns the sorted, deduplicated code vocabulary for the years
// ref.Year() through ref.Year()+years-1. Sorting is lexicographic, not
// chronological: "APR25" sorts before "JAN25".
func Generate(ref time.Time, years int) []string {
	if years <= 0 {
		return nil
	}
	seen := make(map[string]bool, years*21)
	codes := make([]string, 0, years*21)
	add := func(code string) {
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	for y := ref.Year(); y < ref.Year()+years; y++ {
		yy := shortYear(y)
		for _, m := range monthCodes {
			add(m + yy)
		}
		for q := 1; q <= 4; q++ {
			add(fmt.Sprintf("%sQ%d", yy, q))
		}
		add(yy + "WIN")
		add(yy + "SUM")
		add("CAL" + yy)
		add("GY" + yy)
		add("SY" + yy)
	}

	sort.Strings(codes)
	return codes
}

// Choose returns the custom code when one was typed, otherwise the code
// selected from the generated list.
func Choose(selected, custom string) string {
	if c := strings.TrimSpace(custom); c != "" {
		return c
	}
	return selected
}

// Contains reports whether code is in a generated vocabulary.
func Contains(vocabulary []string, code string) bool {
	i := sort.SearchStrings(vocabulary, code)
	return i < len(vocabulary) && vocabulary[i] == code
}

func shortYear(y int) string {
	return fmt.Sprintf("%02d", y%100)
}
