package commands

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/redline-cms/redline/internal/cli/config"
	"github.com/redline-cms/redline/internal/cms/record"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// driverName maps the configured driver to the registered database/sql name.
func driverName(driver string) string {
	if driver == "postgres" {
		return "pgx"
	}
	return driver
}

// openDatabase opens and pings the configured database.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(driverName(cfg.Database.Driver), cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writes through a single connection.
	if cfg.Database.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// defaultTypes are the content types a stock site ships with.
func defaultTypes() []record.TypeDef {
	return []record.TypeDef{
		{Name: "page", SupportsRevisions: true, EditCapability: "edit_pages"},
		{Name: "post", SupportsRevisions: true, EditCapability: "edit_posts"},
		{Name: "block", SupportsRevisions: false, EditCapability: "edit_blocks"},
	}
}

// newLogger builds a production zap logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
