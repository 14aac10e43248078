package model

import "fmt"

// Summary renders the one-line markdown digest shown in the entry list.
func Summary(r Record) string {
	return fmt.Sprintf("🔹 %s at **%s** (%s) from **%s** on **%s** - source: _%s_",
		r.Info, r.PointName, r.PointType, r.Counterparty, r.Date, r.Name)
}

// ShortSummary is the plain-text digest used in duplicate warnings.
func ShortSummary(r Record) string {
	return fmt.Sprintf("%s at %s from %s for %s", r.Info, r.PointName, r.Counterparty, r.Date)
}

// MainTag returns the first tag, or "unspecified".
func MainTag(r Record) string {
	if len(r.Tags) == 0 {
		return "unspecified"
	}
	return r.Tags[0]
}
