package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/monitoring"
)

var statsHours int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the records and recent edits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Collector.Collect(cmd.Context(), statsHours)
		if err != nil {
			return err
		}
		return render(os.Stdout, outputFormat, snap, statsTable(snap))
	},
}

func statsTable(s *monitoring.ActivitySnapshot) func(io.Writer) {
	return func(w io.Writer) {
		t := newTable(w, []string{"Metric", "Value"})
		t.Append([]string{"records", strconv.Itoa(s.Records)})
		for _, k := range sortedKeys(s.ByPointType) {
			t.Append([]string{"point type: " + k, strconv.Itoa(s.ByPointType[k])})
		}
		for _, k := range sortedKeys(s.ByCountry) {
			t.Append([]string{"country: " + k, strconv.Itoa(s.ByCountry[k])})
		}
		t.Append([]string{"history entries", strconv.Itoa(s.AuditEntries)})
		for _, a := range s.ByAction() {
			t.Append([]string{fmt.Sprintf("%s (last %dh)", a.Action, s.LookbackHours), strconv.Itoa(a.Count)})
		}
		t.Append([]string{"active users", strings.Join(s.ActiveUsers, ", ")})
		if s.LastActivity != nil {
			t.Append([]string{"last activity", s.LastActivity.Format(time.RFC3339)})
		}
		t.Render()
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	statsCmd.Flags().IntVar(&statsHours, "hours", 24, "lookback window for recent edits; 0 counts everything")
	rootCmd.AddCommand(statsCmd)
}
