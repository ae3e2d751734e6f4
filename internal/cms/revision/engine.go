// Package revision implements native content snapshots and the metadata
// synchronizer that captures and restores record metadata alongside them.
//
// Snapshots are plain records of the reserved revision type. They capture
// title and body only; slug, status, and type always remain the parent's own.
package revision

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/event"
	"github.com/redline-cms/redline/internal/cms/record"
)

var (
	// ErrUnchanged is returned when the change-detection gate skips a
	// snapshot because the record's content matches the latest snapshot.
	ErrUnchanged = errors.New("record content unchanged since last snapshot")

	// ErrNotSnapshot is returned when a restore target is not a snapshot.
	ErrNotSnapshot = errors.New("record is not a snapshot")

	// ErrRevisionsUnsupported is returned when the record's type does not
	// support snapshots.
	ErrRevisionsUnsupported = errors.New("record type does not support revisions")
)

// Engine creates and restores snapshots.
type Engine struct {
	records *record.Store
	bus     *event.Bus
	logger  *zap.Logger

	// gateOff suspends the unchanged-content check while positive. Atomic
	// because requests sharing the engine may overlap.
	gateOff atomic.Int32
}

// NewEngine creates a snapshot engine.
func NewEngine(records *record.Store, bus *event.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{records: records, bus: bus, logger: logger}
}

// SuspendUnchangedCheck disables the change-detection gate and returns the
// function that restores it. Callers defer the returned func so the gate
// comes back on every exit path. Suspensions nest.
func (e *Engine) SuspendUnchangedCheck() (restore func()) {
	e.gateOff.Add(1)
	return func() { e.gateOff.Add(-1) }
}

// Create takes a snapshot of the record and returns the snapshot id. Unless
// force is set (or the gate is suspended), the snapshot is skipped with
// ErrUnchanged when the record's content matches its latest snapshot.
// Fires RevisionCreated.
func (e *Engine) Create(ctx context.Context, recordID int64, force bool) (int64, error) {
	parent, err := e.records.Get(ctx, recordID)
	if err != nil {
		return 0, err
	}
	if parent.Type == record.TypeRevision {
		return 0, ErrNotSnapshot
	}
	if !e.records.Types().SupportsRevisions(parent.Type) {
		return 0, fmt.Errorf("%w: %s", ErrRevisionsUnsupported, parent.Type)
	}

	if !force && e.gateOff.Load() == 0 {
		latest, err := e.Latest(ctx, recordID)
		if err != nil {
			return 0, err
		}
		if latest != nil && latest.Title == parent.Title && latest.Body == parent.Body {
			return 0, ErrUnchanged
		}
	}

	snap := &record.Record{
		Type:     record.TypeRevision,
		Status:   record.StatusInherit,
		Slug:     fmt.Sprintf("%d-revision-v1", parent.ID),
		Title:    parent.Title,
		Body:     parent.Body,
		ParentID: parent.ID,
	}
	snapID, err := e.records.Create(ctx, snap)
	if err != nil {
		return 0, fmt.Errorf("failed to create snapshot of record %d: %w", recordID, err)
	}

	if e.bus != nil {
		e.bus.Publish(ctx, event.RevisionCreatedEvent{SnapshotID: snapID, ParentID: parent.ID})
	}
	return snapID, nil
}

// Restore writes the snapshot's content back onto its parent record. Slug,
// status, and type are never touched. Fires RevisionRestored.
func (e *Engine) Restore(ctx context.Context, snapshotID int64) error {
	snap, err := e.records.Get(ctx, snapshotID)
	if err != nil {
		return err
	}
	if snap.Type != record.TypeRevision {
		return ErrNotSnapshot
	}

	parent, err := e.records.Get(ctx, snap.ParentID)
	if err != nil {
		return fmt.Errorf("snapshot %d has no restorable parent: %w", snapshotID, err)
	}

	parent.Title = snap.Title
	parent.Body = snap.Body
	if err := e.records.Update(ctx, parent); err != nil {
		return fmt.Errorf("failed to restore snapshot %d: %w", snapshotID, err)
	}

	if e.bus != nil {
		e.bus.Publish(ctx, event.RevisionRestoredEvent{RecordID: parent.ID, SnapshotID: snapshotID})
	}
	return nil
}

// Latest returns the most recent snapshot of the record, or nil if none.
func (e *Engine) Latest(ctx context.Context, recordID int64) (*record.Record, error) {
	snaps, err := e.records.List(ctx, record.ListQuery{Type: record.TypeRevision, ParentID: recordID})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return snaps[0], nil
}

// BindAutoSnapshot registers the save-pipeline handler that snapshots every
// revision-supporting record after it is saved. Runs at priority 50 so the
// shadow publish phase (priority 90) observes the snapshot already taken.
func (e *Engine) BindAutoSnapshot(bus *event.Bus) *event.Subscription {
	return bus.Subscribe(event.RecordSaved, 50, func(ctx context.Context, ev event.Event) error {
		saved := ev.(event.RecordSavedEvent)
		if saved.RecordType == record.TypeRevision {
			return nil
		}
		if !e.records.Types().SupportsRevisions(saved.RecordType) {
			return nil
		}
		if _, err := e.Create(ctx, saved.RecordID, false); err != nil {
			if errors.Is(err, ErrUnchanged) || record.IsNotFound(err) {
				return nil
			}
			return err
		}
		return nil
	})
}
