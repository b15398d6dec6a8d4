package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fashionstore/sales-ingest/internal/db"
	"github.com/fashionstore/sales-ingest/internal/warehouse"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent ingestion runs",
	RunE:  runStatusCmd,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10,
		"number of runs to show")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	runs, err := warehouse.RecentRuns(ctx, pool, statusLimit)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}

	if len(runs) == 0 {
		cmd.Println("No ingestion runs recorded.")
		return nil
	}

	cmd.Printf("%-10s  %-11s  %8s  %8s  %9s  %8s  %8s  %s\n",
		"RUN DATE", "STATUS", "READ", "MATCHED", "MALFORMED", "INSERTED", "SKIPPED", "FINISHED")
	for _, r := range runs {
		cmd.Printf("%-10s  %-11s  %8d  %8d  %9d  %8d  %8d  %s\n",
			r.RunDate.Format("2006-01-02"), r.Status, r.RowsRead,
			r.RowsMatched, r.RowsMalformed, r.FactsInserted,
			r.FactsSkipped, r.FinishedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
