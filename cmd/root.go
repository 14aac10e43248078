package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/config"
)

var cfg *config.Config

var (
	outputFormat string
	actingUser   string
)

var rootCmd = &cobra.Command{
	Use:   "market-intel",
	Short: "Gas market intelligence editor",
	Long:  "Records, filters and audits market notes about CEE gas interconnectors, storage sites and virtual trading points.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// actor is the name recorded in the audit log for CLI actions.
func actor() string {
	if actingUser != "" {
		return actingUser
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if cfg != nil && cfg.Identity.DefaultUser != "" {
		return cfg.Identity.DefaultUser
	}
	return "anonymous"
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&actingUser, "user", "", "user recorded in the history (default $USER)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
