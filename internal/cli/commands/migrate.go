package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/redline-cms/redline/internal/cli/config"
	"github.com/redline-cms/redline/internal/cli/ui"
	"github.com/redline-cms/redline/internal/cms/record"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Create the Redline schema in the configured database.

The schema is idempotent: running migrate against an up-to-date
database is a no-op.

Examples:
  redline migrate`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(), nil, false))
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprint(os.Stderr, ui.MigrationError(err.Error(), "", nil, false))
		return err
	}
	defer db.Close()

	err = ui.WithSpinner(cmd.OutOrStdout(), "Applying schema...", false, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return record.Migrate(ctx, db, driverName(cfg.Database.Driver))
	})
	if err != nil {
		fmt.Fprint(os.Stderr, ui.MigrationError(err.Error(),
			"The schema may be partially created.", nil, false))
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), "Schema is up to date", false)
	return nil
}
