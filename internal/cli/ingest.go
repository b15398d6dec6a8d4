package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fashionstore/sales-ingest/internal/db"
	"github.com/fashionstore/sales-ingest/internal/ingest"
	"github.com/fashionstore/sales-ingest/internal/logging"
	"github.com/fashionstore/sales-ingest/internal/storage"
	"github.com/fashionstore/sales-ingest/internal/warehouse"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [run_date]",
	Short: "Ingest one day of sales from object storage into the warehouse",
	Long: `Ingest all extract rows whose sale date equals run_date (YYYYMMDD).
When run_date is omitted the current UTC day is used, matching the
daily scheduler default. The whole run executes in one transaction;
re-invoking for an already-loaded date inserts nothing new.

Example:
  sales-ingest ingest 20250616 --connection "postgres://..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	dateArg := time.Now().UTC().Format("20060102")
	if len(args) == 1 {
		dateArg = args[0]
	}
	runDate, err := ingest.ParseRunDate(dateArg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("%w: %w", ingest.ErrStoreUnavailable, err)
	}
	defer pool.Close()

	source, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("%w: %w", ingest.ErrSourceUnavailable, err)
	}

	orch := ingest.New(source, warehouse.NewStore(pool), cfg.Ingest, logging.Logger)

	started := time.Now().UTC()
	report, runErr := orch.Run(ctx, runDate)
	finished := time.Now().UTC()

	rec := warehouse.RunRecord{
		RunDate:       runDate,
		Status:        runStatus(orch.State()),
		RowsRead:      report.RowsRead,
		RowsMatched:   report.RowsMatched,
		RowsMalformed: report.RowsMalformed,
		FactsInserted: report.FactsInserted(),
		FactsSkipped:  report.FactsSkipped(),
		StartedAt:     started,
		FinishedAt:    finished,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}

	// Run history is best effort: the run outcome stands on its own.
	if err := warehouse.RecordRun(ctx, pool, rec); err != nil {
		logging.Warn().Err(err).Msg("Failed to record run history")
	}

	return runErr
}

func runStatus(s ingest.State) string {
	switch s {
	case ingest.StateCommitted:
		return warehouse.RunStatusCommitted
	case ingest.StateRolledBack:
		return warehouse.RunStatusRolledBack
	default:
		return warehouse.RunStatusFailed
	}
}
