package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bookharvest/internal/config"
)

var retryAll bool

var retryCmd = &cobra.Command{
	Use:   "retry [id ...]",
	Short: "Move failed identifiers back to the pending set",
	Long: `Move failed identifiers back into the pending set so the next run
attempts them again. Pass explicit identifiers or --all. This is the only
way out of the failed state; downloaded identifiers are never requeued.`,
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().BoolVar(&retryAll, "all", false, "requeue every failed identifier")
}

func runRetry(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}

	if retryAll {
		moved, err := l.RequeueAllFailed()
		if err != nil {
			return err
		}
		fmt.Printf("Requeued %d failed identifiers\n", moved)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("pass identifiers to retry, or --all")
	}

	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid identifier %q", arg)
		}
		if err := l.Requeue(id); err != nil {
			return err
		}
		fmt.Printf("Requeued %d\n", id)
	}
	return nil
}
