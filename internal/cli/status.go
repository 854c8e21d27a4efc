package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookharvest/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show control ledger counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()

		l, err := openLedger(cfg)
		if err != nil {
			return err
		}

		pending, downloaded, failed := l.Counts()
		fmt.Printf("Pending:    %d\n", pending)
		fmt.Printf("Downloaded: %d\n", downloaded)
		fmt.Printf("Failed:     %d\n", failed)
		return nil
	},
}
