// Package geo serves the interconnector map: the point table, country
// midpoints and GeoJSON for a browser map.
package geo

import (
	_ "embed"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed data/interconnectors.csv
var defaultCSV string

// Interconnector is a cross-border gas point.
type Interconnector struct {
	Name string  `csv:"name" json:"name"`
	From string  `csv:"from" json:"from"`
	To   string  `csv:"to" json:"to"`
	Lat  float64 `csv:"lat" json:"lat"`
	Lon  float64 `csv:"lon" json:"lon"`
}

// Tooltip is the marker label.
func (ic Interconnector) Tooltip() string {
	return ic.Name + " (" + ic.From + " → " + ic.To + ")"
}

func (ic Interconnector) valid() bool {
	return strings.TrimSpace(ic.Name) != "" &&
		ic.Lat >= -90 && ic.Lat <= 90 &&
		ic.Lon >= -180 && ic.Lon <= 180
}

// Default returns the built-in interconnector table.
func Default() ([]Interconnector, error) {
	return Parse(strings.NewReader(defaultCSV))
}

// Load reads the table from path, or the built-in one when path is empty.
func Load(path string) ([]Interconnector, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads name,from,to,lat,lon CSV. Rows without a name or with
// out-of-range coordinates are skipped.
func Parse(r io.Reader) ([]Interconnector, error) {
	var rows []Interconnector
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, eris.Wrap(err, "geo: parse interconnectors")
	}
	out := make([]Interconnector, 0, len(rows))
	for _, ic := range rows {
		ic.Name = strings.TrimSpace(ic.Name)
		ic.From = strings.TrimSpace(ic.From)
		ic.To = strings.TrimSpace(ic.To)
		if !ic.valid() {
			zap.L().Warn("geo: skipping interconnector", zap.String("name", ic.Name),
				zap.Float64("lat", ic.Lat), zap.Float64("lon", ic.Lon))
			continue
		}
		out = append(out, ic)
	}
	return out, nil
}

// Countries is the sorted union of from and to countries.
func Countries(list []Interconnector) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, ic := range list {
		for _, c := range []string{ic.From, ic.To} {
			if c != "" && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

// FilterByCountries keeps interconnectors touching any selected country. No
// selection keeps everything.
func FilterByCountries(list []Interconnector, countries []string) []Interconnector {
	if len(countries) == 0 {
		return list
	}
	sel := make(map[string]bool, len(countries))
	for _, c := range countries {
		sel[strings.TrimSpace(c)] = true
	}
	out := []Interconnector{}
	for _, ic := range list {
		if sel[ic.From] || sel[ic.To] {
			out = append(out, ic)
		}
	}
	return out
}
