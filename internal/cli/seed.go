package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fashionstore/sales-ingest/internal/datagen"
	"github.com/fashionstore/sales-ingest/internal/ingest"
	"github.com/fashionstore/sales-ingest/internal/logging"
	"github.com/fashionstore/sales-ingest/internal/storage"
)

var (
	seedRows      int
	seedDays      int
	seedStartDate string
	seedSeed      uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate a sample sales extract and upload it to object storage",
	Long: `Generate a fake fashion store sales extract and upload it to the
configured bucket and object key, creating the bucket when missing.
Useful for local development and end-to-end testing of the pipeline.

Example:
  sales-ingest seed --rows 5000 --days 7 --start-date 20250610`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedRows, "rows", 0,
		"number of sale item rows to generate")
	seedCmd.Flags().IntVar(&seedDays, "days", 0,
		"number of consecutive sale dates to cover")
	seedCmd.Flags().StringVar(&seedStartDate, "start-date", "",
		"first sale date (YYYYMMDD, default: today)")
	seedCmd.Flags().Uint64Var(&seedSeed, "seed", 0,
		"random seed for reproducible extracts")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedRows > 0 {
		cfg.Seed.Rows = seedRows
	}
	if seedDays > 0 {
		cfg.Seed.Days = seedDays
	}
	if seedStartDate != "" {
		cfg.Seed.StartDate = seedStartDate
	}
	if err := cfg.ValidateSeed(); err != nil {
		return err
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	if cfg.Seed.StartDate != "" {
		var err error
		if start, err = ingest.ParseRunDate(cfg.Seed.StartDate); err != nil {
			return err
		}
	}

	logging.Info().
		Int("rows", cfg.Seed.Rows).
		Int("days", cfg.Seed.Days).
		Str("start_date", start.Format("20060102")).
		Msg("Generating sample extract")

	data, err := datagen.GenerateExtract(datagen.ExtractSpec{
		Rows:  cfg.Seed.Rows,
		Days:  cfg.Seed.Days,
		Start: start,
		Seed:  seedSeed,
	})
	if err != nil {
		return fmt.Errorf("failed to generate extract: %w", err)
	}

	client, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	if err := client.Put(context.Background(), data); err != nil {
		return fmt.Errorf("failed to upload extract: %w", err)
	}

	return nil
}
