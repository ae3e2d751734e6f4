// Package app composes the content system: store, event bus, snapshot
// engine, metadata synchronizer, and shadow service, wired in the order the
// save pipeline expects.
package app

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/caps"
	"github.com/redline-cms/redline/internal/cms/event"
	"github.com/redline-cms/redline/internal/cms/meta"
	"github.com/redline-cms/redline/internal/cms/record"
	"github.com/redline-cms/redline/internal/cms/revision"
	"github.com/redline-cms/redline/internal/cms/shadow"
)

// Options configures composition.
type Options struct {
	Logger *zap.Logger
	// Types registers content types beyond the built-ins.
	Types []record.TypeDef
	// Checker defaults to a role checker with the default grant table.
	Checker caps.Checker
	// DisableAutoSnapshot turns off the save-pipeline snapshot handler.
	DisableAutoSnapshot bool
}

// App holds the wired subsystems.
type App struct {
	Logger     *zap.Logger
	Bus        *event.Bus
	Meta       *meta.Store
	Records    *record.Store
	Copier     *meta.Copier
	Exclusions *meta.Exclusions
	Engine     *revision.Engine
	Sync       *revision.Synchronizer
	Caps       *caps.Registry
	Duplicator *shadow.Duplicator
	Shadow     *shadow.Service
}

// New wires the system over an open database. The schema must already exist
// (see record.Migrate).
func New(db *sql.DB, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bus := event.NewBus(logger)
	metaStore := meta.NewStore(db, logger)
	types := record.NewTypes()
	for _, def := range opts.Types {
		types.Register(def)
	}
	records := record.NewStore(db, bus, metaStore, types, logger)

	engine := revision.NewEngine(records, bus, logger)
	if !opts.DisableAutoSnapshot {
		engine.BindAutoSnapshot(bus)
	}

	copier := meta.NewCopier(metaStore, logger)
	excl := meta.NewExclusions()
	sync := revision.NewSynchronizer(records, metaStore, copier, excl, engine, logger)
	sync.Bind(bus)

	checker := opts.Checker
	if checker == nil {
		checker = caps.NewRoleChecker(caps.DefaultGrants())
	}
	capsReg := caps.NewRegistry(checker)

	dup := shadow.NewDuplicator(records, copier, excl, logger)
	svc := shadow.NewService(records, metaStore, dup, sync, capsReg, bus, logger)
	svc.Bind()

	return &App{
		Logger:     logger,
		Bus:        bus,
		Meta:       metaStore,
		Records:    records,
		Copier:     copier,
		Exclusions: excl,
		Engine:     engine,
		Sync:       sync,
		Caps:       capsReg,
		Duplicator: dup,
		Shadow:     svc,
	}
}
