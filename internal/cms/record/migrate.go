package record

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the records and record_meta tables if they do not exist.
// DDL differs slightly per driver (auto-increment syntax), so the driver name
// used to open the connection must be passed in.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var idColumn string
	switch driver {
	case "sqlite3":
		idColumn = "INTEGER PRIMARY KEY AUTOINCREMENT"
	case "pgx", "postgres":
		idColumn = "BIGSERIAL PRIMARY KEY"
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS records (
			id %s,
			guid TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			slug TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			parent_id INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, idColumn),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS record_meta (
			id %s,
			record_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL
		)`, idColumn),
		`CREATE INDEX IF NOT EXISTS idx_records_type_status ON records (type, status)`,
		`CREATE INDEX IF NOT EXISTS idx_records_parent ON records (parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_record_meta_record_key ON record_meta (record_id, key)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
