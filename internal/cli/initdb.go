package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fashionstore/sales-ingest/internal/db"
	"github.com/fashionstore/sales-ingest/internal/logging"
	"github.com/fashionstore/sales-ingest/internal/warehouse"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the warehouse schema and analytical view",
	Long: `Create the dimension and fact tables, the run history table, and
the analytical view in the target database. Existing tables are left
untouched unless --drop-existing is given.

Example:
  sales-ingest init --connection "postgres://..."`,
	RunE: runInitDB,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing warehouse tables before creating the schema")
}

func runInitDB(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if initDropExisting {
		logging.Warn().Msg("Dropping existing warehouse schema")
		if err := warehouse.DropSchema(ctx, pool); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	logging.Info().Msg("Creating warehouse schema")
	if err := warehouse.CreateSchema(ctx, pool); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Info().Msg("Warehouse initialization complete")
	return nil
}
