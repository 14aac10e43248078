package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Midpoint is a [lat, lon] pair used as the anchor of a country's links.
type Midpoint [2]float64

// Midpoints anchors the link lines drawn from each country to its points.
var Midpoints = map[string]Midpoint{
	"Turkey":   {39.0, 35.2},
	"Bulgaria": {42.8, 25.3},
	"Romania":  {45.9, 24.9},
	"Greece":   {39.1, 22.9},
	"Serbia":   {44.0, 20.5},
	"Hungary":  {47.2, 19.5},
	"Croatia":  {45.1, 15.6},
	"Slovenia": {46.1, 14.8},
	"Austria":  {47.5, 14.6},
	"Slovakia": {48.7, 19.7},
	"Ukraine":  {48.4, 31.0},
	"Moldova":  {47.0, 28.8},
}

// Center is the default map view.
var Center = Midpoint{47, 20}

// FeatureCollection builds one Point feature per interconnector and one
// LineString per country midpoint link. GeoJSON coordinates are lon, lat.
func FeatureCollection(list []Interconnector) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, ic := range list {
		pt := geom.NewPointFlat(geom.XY, []float64{ic.Lon, ic.Lat})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       ic.Name,
			Geometry: pt,
			Properties: map[string]any{
				"kind":    "interconnector",
				"name":    ic.Name,
				"from":    ic.From,
				"to":      ic.To,
				"tooltip": ic.Tooltip(),
			},
		})

		for _, country := range []string{ic.From, ic.To} {
			mid, ok := Midpoints[country]
			if !ok {
				continue
			}
			line := geom.NewLineString(geom.XY)
			if _, err := line.SetCoords([]geom.Coord{{mid[1], mid[0]}, {ic.Lon, ic.Lat}}); err != nil {
				return nil, eris.Wrapf(err, "geo: link %s to %s", country, ic.Name)
			}
			fc.Features = append(fc.Features, &geojson.Feature{
				Geometry: line,
				Properties: map[string]any{
					"kind":           "link",
					"country":        country,
					"interconnector": ic.Name,
				},
			})
		}
	}
	return fc, nil
}
