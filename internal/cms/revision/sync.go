package revision

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/event"
	"github.com/redline-cms/redline/internal/cms/meta"
	"github.com/redline-cms/redline/internal/cms/record"
)

// Synchronizer backs up record metadata onto snapshots as they are created
// and restores it when a snapshot's content is restored.
//
// Capture is toggleable; restore stays bound whenever the feature is in use,
// so snapshots captured earlier remain restorable even with capture off.
// Whether a given snapshot carries metadata is decided solely by its marker
// entry: restoration never happens without confirmed prior capture.
type Synchronizer struct {
	records *record.Store
	meta    *meta.Store
	copier  *meta.Copier
	excl    *meta.Exclusions
	engine  *Engine
	logger  *zap.Logger

	captureEnabled atomic.Bool
	captureSub     *event.Subscription
	restoreSub     *event.Subscription
}

// NewSynchronizer creates a metadata synchronizer.
func NewSynchronizer(records *record.Store, metaStore *meta.Store, copier *meta.Copier, excl *meta.Exclusions, engine *Engine, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synchronizer{
		records: records,
		meta:    metaStore,
		copier:  copier,
		excl:    excl,
		engine:  engine,
		logger:  logger,
	}
	s.captureEnabled.Store(true)
	return s
}

// Bind subscribes the capture and restore handlers on the bus.
func (s *Synchronizer) Bind(bus *event.Bus) {
	s.captureSub = bus.Subscribe(event.RevisionCreated, 10, s.onRevisionCreated)
	s.restoreSub = bus.Subscribe(event.RevisionRestored, 10, s.onRevisionRestored)
}

// SetCaptureEnabled toggles metadata capture on snapshot creation.
func (s *Synchronizer) SetCaptureEnabled(enabled bool) {
	s.captureEnabled.Store(enabled)
}

// CaptureEnabled reports whether capture is currently on.
func (s *Synchronizer) CaptureEnabled() bool {
	return s.captureEnabled.Load()
}

// onRevisionCreated copies the parent's metadata onto the fresh snapshot and
// sets the marker. The marker doubles as an idempotency guard: a snapshot
// already carrying it is left alone even if the event fires twice in one
// cycle.
func (s *Synchronizer) onRevisionCreated(ctx context.Context, ev event.Event) error {
	if !s.captureEnabled.Load() {
		return nil
	}
	created := ev.(event.RevisionCreatedEvent)

	if _, err := s.records.Get(ctx, created.ParentID); err != nil {
		if record.IsNotFound(err) {
			return nil
		}
		return err
	}

	marked, err := s.meta.Exists(ctx, created.SnapshotID, meta.KeyMetaInRevision)
	if err != nil {
		return err
	}
	if marked {
		return nil
	}

	copied, err := s.copier.CopyAll(ctx, created.ParentID, created.SnapshotID, s.excl.For(meta.ContextCapture))
	if err != nil {
		return err
	}
	s.logger.Debug("captured metadata with snapshot",
		zap.Int64("snapshot", created.SnapshotID),
		zap.Int64("parent", created.ParentID),
		zap.Int("values", copied))

	return s.meta.Set(ctx, created.SnapshotID, meta.KeyMetaInRevision, true)
}

// onRevisionRestored replaces the destination's metadata with the snapshot's
// captured metadata. Snapshots without the marker predate capture (or were
// made with capture off) and are skipped entirely.
func (s *Synchronizer) onRevisionRestored(ctx context.Context, ev event.Event) error {
	restored := ev.(event.RevisionRestoredEvent)

	marked, err := s.meta.Exists(ctx, restored.SnapshotID, meta.KeyMetaInRevision)
	if err != nil {
		return err
	}
	if !marked {
		return nil
	}

	if _, err := s.copier.DeleteAll(ctx, restored.RecordID, s.excl.For(meta.ContextRestore)); err != nil {
		return err
	}
	copied, err := s.copier.CopyAll(ctx, restored.SnapshotID, restored.RecordID, s.excl.For(meta.ContextRestore))
	if err != nil {
		return err
	}
	s.logger.Debug("restored metadata from snapshot",
		zap.Int64("snapshot", restored.SnapshotID),
		zap.Int64("record", restored.RecordID),
		zap.Int("values", copied))
	return nil
}

// CreateExact forces a snapshot even when no content change is detected. The
// change-detection gate is suspended for the duration of the call and capture
// is toggled to the caller's intent; both are restored on every exit path.
func (s *Synchronizer) CreateExact(ctx context.Context, recordID int64, withMeta bool) (int64, error) {
	restoreGate := s.engine.SuspendUnchangedCheck()
	defer restoreGate()

	prev := s.captureEnabled.Swap(withMeta)
	defer func() { s.captureEnabled.Store(prev) }()

	return s.engine.Create(ctx, recordID, false)
}
