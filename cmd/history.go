package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history [name]",
	Short: "Show the audit history of one record, or of all records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		var entries []model.AuditEntry
		if len(args) == 1 {
			entries, err = env.Editor.History(cmd.Context(), args[0])
		} else {
			entries, err = env.Editor.AllHistory(cmd.Context())
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 && outputFormat == "table" {
			fmt.Fprintln(os.Stderr, "No history found.")
			return nil
		}
		return render(os.Stdout, outputFormat, entries, historyTable(entries))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
