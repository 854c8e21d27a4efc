// Package cli wires the harvester's command surface: seeding the control
// ledger, running the ingestion batch, retrying failures and inspecting
// the datamart.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bookharvest/internal/adapters/ledger"
	"bookharvest/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Public-domain book ingestion pipeline",
	Long: `harvester fetches public-domain books, archives the raw text into a
date-partitioned datalake, extracts bibliographic metadata and stores it
in a configurable datamart backend (sqlite, postgres or redis).

Configuration is read from BH_* environment variables (or a .env file).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openLedger(cfg *config.Config) (*ledger.FileLedger, error) {
	l, err := ledger.Open(cfg.ControlDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open control ledger: %w", err)
	}
	return l, nil
}
