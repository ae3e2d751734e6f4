package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cli/config"
	"github.com/redline-cms/redline/internal/cli/ui"
	"github.com/redline-cms/redline/internal/cms/app"
	"github.com/redline-cms/redline/internal/cms/record"
)

var (
	recordsType           string
	recordsStatus         string
	recordsIncludeShadows bool
)

// NewRecordsCommand creates the records command
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect content records",
		Long: `Inspect the records stored in the configured database.

Available subcommands:
  list  - List records, optionally filtered by type and status
  types - Show registered content types`,
	}

	cmd.AddCommand(newRecordsListCommand())
	cmd.AddCommand(newRecordsTypesCommand())

	return cmd
}

func newRecordsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Long: `List records in the database.

Shadow drafts are hidden unless --include-shadows is given.

Examples:
  redline records list
  redline records list --type page
  redline records list --type page --status publish
  redline records list --include-shadows`,
		RunE: runRecordsList,
	}

	cmd.Flags().StringVarP(&recordsType, "type", "t", "", "Filter by content type")
	cmd.Flags().StringVarP(&recordsStatus, "status", "s", "", "Filter by status")
	cmd.Flags().BoolVar(&recordsIncludeShadows, "include-shadows", false, "Include shadow drafts")

	return cmd
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	application, db, err := openApp()
	if err != nil {
		return err
	}
	defer db.Close()

	if recordsType != "" {
		if _, ok := application.Records.Types().Get(recordsType); !ok {
			suggestions := ui.Suggest(recordsType, application.Records.Types().Names())
			fmt.Fprint(os.Stderr, ui.TypeNotFoundError(recordsType, suggestions, false))
			return fmt.Errorf("unknown content type: %s", recordsType)
		}
	}

	records, err := application.Records.List(context.Background(), record.ListQuery{
		Type:           recordsType,
		Status:         recordsStatus,
		IncludeShadows: recordsIncludeShadows,
	})
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprint(cmd.OutOrStdout(), ui.Info("No records found.", false))
		return nil
	}

	table := ui.NewTable(cmd.OutOrStdout(), "ID", "TYPE", "STATUS", "TITLE", "SLUG")
	for _, rec := range records {
		table.AddRow(
			strconv.FormatInt(rec.ID, 10),
			rec.Type,
			rec.Status,
			rec.Title,
			rec.Slug,
		)
	}
	table.Render()
	return nil
}

func newRecordsTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Show registered content types",
		RunE: func(cmd *cobra.Command, args []string) error {
			types := record.NewTypes()
			for _, def := range defaultTypes() {
				types.Register(def)
			}

			table := ui.NewTable(cmd.OutOrStdout(), "TYPE", "REVISIONS", "EDIT CAPABILITY")
			for _, name := range types.Names() {
				def, _ := types.Get(name)
				revisions := "no"
				if def.SupportsRevisions {
					revisions = "yes"
				}
				table.AddRow(def.Name, revisions, def.EditCapability)
			}
			table.Render()
			return nil
		},
	}
}

// openApp loads config, opens the database, and wires the content system
// with a quiet logger for one-shot CLI use.
func openApp() (*app.App, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(), nil, false))
		return nil, nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(),
			[]string{"Run 'redline migrate' first"}, false))
		return nil, nil, err
	}

	application := app.New(db, app.Options{
		Logger: zap.NewNop(),
		Types:  defaultTypes(),
	})
	return application, db, nil
}
