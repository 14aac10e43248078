package model

import (
	"sort"
	"strings"
)

// TagSeparator joins tags in their persisted form.
const TagSeparator = ", "

// SplitTags parses a comma-separated tag string. Blank entries are dropped and
// surrounding whitespace is trimmed; order is preserved.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// NormalizeTags trims, deduplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// JoinTags renders tags in their persisted comma-joined form.
func JoinTags(tags []string) string {
	return strings.Join(tags, TagSeparator)
}

// KnownTags returns the sorted union of the predefined tags and every tag
// used by records.
func KnownTags(predefined []string, records []Record) []string {
	all := append([]string(nil), predefined...)
	for _, r := range records {
		all = append(all, r.Tags...)
	}
	return NormalizeTags(all)
}
