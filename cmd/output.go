package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-intel/internal/model"
)

// render writes v as JSON or YAML, or calls table for the default format.
func render(w io.Writer, format string, v any, table func(io.Writer)) error {
	switch strings.ToLower(format) {
	case "", "table":
		table(w)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetBorder(false)
	t.SetColumnSeparator("")
	return t
}

func recordsTable(records []model.Record) func(io.Writer) {
	return func(w io.Writer) {
		t := newTable(w, []string{"Name", "Counterparty", "Country", "Point Type", "Point Name", "Date", "Info", "Capacity", "Volume", "Tags"})
		for _, r := range records {
			t.Append([]string{
				r.Name, r.Counterparty, r.Country, string(r.PointType), r.PointName,
				r.Date, r.Info, r.Capacity.String(), r.Volume.String(), r.TagString(),
			})
		}
		t.Render()
	}
}

func historyTable(entries []model.AuditEntry) func(io.Writer) {
	return func(w io.Writer) {
		t := newTable(w, []string{"Time", "Action", "Name", "Point Name", "User", "Comment"})
		for _, e := range entries {
			t.Append([]string{
				e.Timestamp.Format(time.RFC3339), string(e.Action), e.Key, e.PointName, e.User, e.Comment,
			})
		}
		t.Render()
	}
}
