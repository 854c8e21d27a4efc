package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bookharvest/internal/adapters/datalake"
	"bookharvest/internal/config"
	"bookharvest/internal/core/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process all pending book identifiers",
	Long: `Process the pending set sequentially: fetch each book, archive the
raw text into the datalake, extract metadata and upsert it into the
configured datamart. Outcomes are committed to the control ledger per
identifier, so an interrupted run resumes where it stopped.`,
	RunE: runHarvest,
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}

	store, err := service.CreateMetadataStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open datamart backend %q: %w", cfg.DatamartBackend, err)
	}
	defer store.Close()

	harvester := service.NewHarvester(
		cfg,
		service.CreateFetcher(cfg),
		datalake.NewStore(cfg.DatalakeRoot),
		store,
		l,
	)

	sum, err := harvester.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Run complete. Downloaded: %d, Failed: %d\n", sum.Downloaded, sum.Failed)
	return nil
}
