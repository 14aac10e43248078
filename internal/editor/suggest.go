package editor

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/sells-group/market-intel/internal/model"
)

const (
	maxSuggestions  = 3
	suggestionFloor = 70.0
)

// SuggestTags returns, for each typed tag, up to three known tags that look
// alike, best first. Known tags are the predefined ones plus every tag in use.
func (s *Service) SuggestTags(ctx context.Context, typed []string) (map[string][]string, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	known := model.KnownTags(s.catalog.PredefinedTags, records)

	out := make(map[string][]string, len(typed))
	for _, t := range typed {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out[t] = closest(t, known)
	}
	return out, nil
}

type match struct {
	tag   string
	score float64
}

func closest(tag string, known []string) []string {
	var matches []match
	for _, k := range known {
		if score := similarity(tag, k); score > suggestionFloor {
			matches = append(matches, match{tag: k, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.tag
	}
	return out
}

// similarity scores two strings from 0 to 100 by edit distance relative to the
// longer one.
func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}
