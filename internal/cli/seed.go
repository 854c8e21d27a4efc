package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookharvest/internal/adapters/source"
	"bookharvest/internal/config"
)

var (
	seedStart     int64
	seedEnd       int64
	seedOverwrite bool
	seedFeed      string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the pending set with book identifiers",
	Long: `Populate the control ledger's pending set, either with a numeric
identifier range (--start/--end) or with identifiers discovered from an
Atom catalog feed (--feed). Identifiers already downloaded or failed are
never re-added.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().Int64Var(&seedStart, "start", 0, "first book id of the range (inclusive)")
	seedCmd.Flags().Int64Var(&seedEnd, "end", 0, "last book id of the range (inclusive)")
	seedCmd.Flags().BoolVar(&seedOverwrite, "overwrite", false, "replace the current pending set")
	seedCmd.Flags().StringVar(&seedFeed, "feed", "", "Atom feed URL to discover identifiers from")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}

	feedURL := seedFeed
	if feedURL == "" {
		feedURL = cfg.FeedURL
	}

	switch {
	case seedStart > 0 || seedEnd > 0:
		if seedStart <= 0 || seedEnd <= 0 {
			return fmt.Errorf("--start and --end must both be positive")
		}
		added, err := l.Seed(seedStart, seedEnd, seedOverwrite)
		if err != nil {
			return err
		}
		fmt.Printf("Added %d identifiers to the pending set (%d..%d)\n", added, seedStart, seedEnd)
		return nil

	case feedURL != "":
		disc := source.NewFeedDiscoverer(feedURL, cfg.LogLevel)
		ids, err := disc.Discover(cmd.Context())
		if err != nil {
			return fmt.Errorf("feed discovery failed: %w", err)
		}
		added, err := l.Add(ids...)
		if err != nil {
			return err
		}
		fmt.Printf("Discovered %d identifiers, added %d to the pending set\n", len(ids), added)
		return nil

	default:
		return fmt.Errorf("either --start/--end or --feed is required")
	}
}
