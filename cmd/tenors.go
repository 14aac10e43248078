package main

import (
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/tenor"
)

var tenorsRef string

var tenorsCmd = &cobra.Command{
	Use:   "tenors",
	Short: "List the period codes offered for a reference date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ref := time.Now()
		if tenorsRef != "" {
			t, err := time.Parse(tenor.DateLayout, tenorsRef)
			if err != nil {
				return eris.Wrapf(err, "parse --ref %q", tenorsRef)
			}
			ref = t
		}
		codes := tenor.Generate(ref, cfg.Tenor.WindowYears)
		return render(os.Stdout, outputFormat, codes, func(w io.Writer) {
			t := newTable(w, []string{"Code", "Start", "End"})
			for _, c := range codes {
				p, _ := tenor.Resolve(c)
				t.Append([]string{c, p.Start.Format(tenor.DateLayout), p.End.Format(tenor.DateLayout)})
			}
			t.Render()
		})
	},
}

func init() {
	tenorsCmd.Flags().StringVar(&tenorsRef, "ref", "", "reference date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(tenorsCmd)
}
