package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/geo"
)

var (
	mapCountries []string
	mapGeoJSON   bool
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "List interconnectors, optionally as GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ics, err := loadInterconnectors()
		if err != nil {
			return err
		}
		ics = geo.FilterByCountries(ics, mapCountries)

		if mapGeoJSON {
			fc, err := geo.FeatureCollection(ics)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(fc)
		}

		return render(os.Stdout, outputFormat, ics, func(w io.Writer) {
			t := newTable(w, []string{"Name", "From", "To", "Lat", "Lon"})
			for _, ic := range ics {
				t.Append([]string{
					ic.Name, ic.From, ic.To,
					strconv.FormatFloat(ic.Lat, 'f', 4, 64),
					strconv.FormatFloat(ic.Lon, 'f', 4, 64),
				})
			}
			t.Render()
		})
	},
}

func init() {
	mapCmd.Flags().StringSliceVar(&mapCountries, "country", nil, "keep interconnectors touching these countries")
	mapCmd.Flags().BoolVar(&mapGeoJSON, "geojson", false, "print a GeoJSON FeatureCollection")
	rootCmd.AddCommand(mapCmd)
}
