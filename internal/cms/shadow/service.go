package shadow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/caps"
	"github.com/redline-cms/redline/internal/cms/event"
	"github.com/redline-cms/redline/internal/cms/meta"
	"github.com/redline-cms/redline/internal/cms/record"
	"github.com/redline-cms/redline/internal/cms/revision"
)

// Create precondition failures. Each maps to a distinct user-facing message
// in the admin surface.
var (
	// ErrUnsupportedType means the record's type has no native revisions.
	ErrUnsupportedType = errors.New("record type does not support shadow drafts")
	// ErrAlreadyShadowed means the record already has a shadow.
	ErrAlreadyShadowed = errors.New("record already has a shadow draft")
	// ErrIsShadow means the record is itself a shadow.
	ErrIsShadow = errors.New("record is itself a shadow draft")
	// ErrNotPermitted means the caller lacks the capability.
	ErrNotPermitted = errors.New("not permitted to create a shadow draft")
)

// Service is the shadow-revision state machine. Per original record it knows
// two states, plain and shadowed; publishing a shadow collapses the pair back
// to plain by overwriting the original and deleting the shadow.
type Service struct {
	records *record.Store
	meta    *meta.Store
	dup     *Duplicator
	sync    *revision.Synchronizer
	caps    *caps.Registry
	bus     *event.Bus
	logger  *zap.Logger

	transitionSub *event.Subscription
	trashedSub    *event.Subscription
	untrashedSub  *event.Subscription
}

// NewService creates the state machine. Call Bind to attach it to the bus.
func NewService(records *record.Store, metaStore *meta.Store, dup *Duplicator, sync *revision.Synchronizer, capsReg *caps.Registry, bus *event.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records: records,
		meta:    metaStore,
		dup:     dup,
		sync:    sync,
		caps:    capsReg,
		bus:     bus,
		logger:  logger,
	}
}

// Bind subscribes the lifecycle handlers. Transition and trash handlers keep
// their subscriptions so they can suspend themselves around calls that would
// re-trigger them.
func (s *Service) Bind() {
	s.transitionSub = s.bus.Subscribe(event.StatusTransition, 10, s.onStatusTransition)
	s.bus.Subscribe(event.BeforeDelete, 10, s.onBeforeDelete)
	s.trashedSub = s.bus.Subscribe(event.Trashed, 10, s.onTrashed)
	s.untrashedSub = s.bus.Subscribe(event.Untrashed, 10, s.onUntrashed)
}

// ShadowOf returns the original's id when the record is a shadow.
func (s *Service) ShadowOf(ctx context.Context, id int64) (int64, bool) {
	origID, ok, err := s.meta.GetInt64(ctx, id, meta.KeyShadowOf)
	if err != nil {
		s.logger.Warn("failed to read shadow pointer", zap.Int64("record", id), zap.Error(err))
		return 0, false
	}
	return origID, ok
}

// ShadowID returns the shadow's id when the record has one.
func (s *Service) ShadowID(ctx context.Context, id int64) (int64, bool) {
	shadowID, ok, err := s.meta.GetInt64(ctx, id, meta.KeyShadowID)
	if err != nil {
		s.logger.Warn("failed to read child pointer", zap.Int64("record", id), zap.Error(err))
		return 0, false
	}
	return shadowID, ok
}

// Create makes a shadow draft of the record and links the pair. Preconditions
// are checked in order; each failure returns its distinct sentinel with no
// mutation performed. Duplication failures are surfaced to the caller.
func (s *Service) Create(ctx context.Context, originalID int64) (int64, error) {
	orig, err := s.records.Get(ctx, originalID)
	if err != nil {
		return 0, err
	}
	if !s.records.Types().SupportsRevisions(orig.Type) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, orig.Type)
	}
	if _, isShadow := s.ShadowOf(ctx, originalID); isShadow {
		return 0, ErrIsShadow
	}
	if _, hasShadow := s.ShadowID(ctx, originalID); hasShadow {
		return 0, ErrAlreadyShadowed
	}
	if !s.caps.Allowed(ctx, caps.ActionCreateShadow, originalID) {
		return 0, ErrNotPermitted
	}

	// Empty slug prevents duplicate-slug conflicts with the original.
	emptySlug := ""
	draft := record.StatusDraft
	shadowID, err := s.dup.Duplicate(ctx, originalID, Overrides{Slug: &emptySlug, Status: &draft})
	if err != nil {
		return 0, fmt.Errorf("shadow duplication failed: %w", err)
	}

	// The pointer entries exist together or not at all. A duplicate that
	// cannot be linked is discarded so the original stays shadow-free.
	if err := s.meta.Set(ctx, shadowID, meta.KeyShadowOf, strconv.FormatInt(originalID, 10)); err != nil {
		s.discardUnlinked(ctx, shadowID)
		return 0, fmt.Errorf("failed to link shadow to original: %w", err)
	}
	if err := s.meta.Set(ctx, originalID, meta.KeyShadowID, strconv.FormatInt(shadowID, 10)); err != nil {
		s.discardUnlinked(ctx, shadowID)
		return 0, fmt.Errorf("failed to link original to shadow: %w", err)
	}

	s.logger.Info("shadow draft created",
		zap.Int64("original", originalID),
		zap.Int64("shadow", shadowID))
	return shadowID, nil
}

// discardUnlinked deletes a half-created duplicate after a linking failure.
// Best effort: the duplicate carries at most one pointer entry, so the delete
// cascade has nothing further to unwind.
func (s *Service) discardUnlinked(ctx context.Context, shadowID int64) {
	if err := s.records.Delete(ctx, shadowID); err != nil && !record.IsNotFound(err) {
		s.logger.Warn("failed to discard unlinked duplicate",
			zap.Int64("shadow", shadowID), zap.Error(err))
	}
}

// onStatusTransition watches for a shadow moving to published status and
// schedules the publish completion at the end of the save pipeline, after
// other save-time side effects (such as the automatic snapshot) have run.
// The scheduled handler deregisters itself before firing, so it runs at most
// once per detected transition.
func (s *Service) onStatusTransition(ctx context.Context, ev event.Event) error {
	tr := ev.(event.StatusTransitionEvent)
	if tr.NewStatus != record.StatusPublish {
		return nil
	}
	shadowID := tr.RecordID
	if _, isShadow := s.ShadowOf(ctx, shadowID); !isShadow {
		return nil
	}
	if !s.caps.Allowed(ctx, caps.ActionPublishShadow, shadowID) {
		s.logger.Warn("shadow publish denied, pair left linked",
			zap.Int64("shadow", shadowID))
		return nil
	}

	s.bus.SubscribeOnce(event.RecordSaved, 90, func(ctx context.Context, ev event.Event) error {
		saved := ev.(event.RecordSavedEvent)
		if saved.RecordID != shadowID {
			s.logger.Warn("publish completion fired for unexpected record",
				zap.Int64("expected", shadowID),
				zap.Int64("got", saved.RecordID))
			return nil
		}
		return s.finishPublish(ctx, shadowID)
	})
	return nil
}

// finishPublish is phase two of publishing a shadow: snapshot the original,
// overwrite it with the shadow's content, unlink, and delete the shadow.
func (s *Service) finishPublish(ctx context.Context, shadowID int64) error {
	// Re-verify: the scheduled callback may run after further mutations.
	sh, err := s.records.Get(ctx, shadowID)
	if err != nil {
		if record.IsNotFound(err) {
			return nil
		}
		return err
	}
	if sh.Status != record.StatusPublish {
		return nil
	}
	origID, isShadow := s.ShadowOf(ctx, shadowID)
	if !isShadow {
		return nil
	}
	if _, err := s.records.Get(ctx, origID); err != nil {
		if record.IsNotFound(err) {
			// Orphaned shadow: its original is gone. Leave it as-is.
			s.logger.Debug("publish aborted, original missing",
				zap.Int64("shadow", shadowID),
				zap.Int64("original", origID))
			return nil
		}
		return err
	}

	// Overwriting the original below re-enters the save pipeline; the
	// transition handler stays quiet for the duration.
	resume := s.transitionSub.Suspend()
	defer resume()

	// Safety backup of the original before it is overwritten. The shadow
	// content still exists if this fails, so the publish proceeds.
	if _, err := s.sync.CreateExact(ctx, origID, true); err != nil && !errors.Is(err, revision.ErrUnchanged) {
		s.logger.Warn("pre-publish snapshot failed",
			zap.Int64("original", origID), zap.Error(err))
	}

	if err := s.dup.Overwrite(ctx, shadowID, origID); err != nil {
		s.logger.Error("publish overwrite failed, pair left linked",
			zap.Int64("shadow", shadowID),
			zap.Int64("original", origID),
			zap.Error(err))
		return err
	}

	if err := s.meta.Delete(ctx, origID, meta.KeyShadowID); err != nil {
		return err
	}
	if err := s.records.Delete(ctx, shadowID); err != nil {
		return err
	}

	s.logger.Info("shadow published onto original",
		zap.Int64("original", origID),
		zap.Int64("shadow", shadowID))
	return nil
}

// onBeforeDelete cascades permanent deletion across the pair: deleting a
// shadow unlinks its original; deleting an original takes its shadow along.
func (s *Service) onBeforeDelete(ctx context.Context, ev event.Event) error {
	id := ev.(event.BeforeDeleteEvent).RecordID

	if origID, isShadow := s.ShadowOf(ctx, id); isShadow {
		if err := s.meta.Delete(ctx, origID, meta.KeyShadowID); err != nil {
			s.logger.Warn("failed to unlink original on shadow delete",
				zap.Int64("original", origID), zap.Error(err))
		}
	}

	if shadowID, hasShadow := s.ShadowID(ctx, id); hasShadow {
		if err := s.records.Delete(ctx, shadowID); err != nil && !record.IsNotFound(err) {
			s.logger.Warn("failed to cascade delete to shadow",
				zap.Int64("shadow", shadowID), zap.Error(err))
		}
	}
	return nil
}

// onTrashed implements the trash cascade: a trashed shadow is discarded
// permanently (shadows have no recoverable trash state), and trashing an
// original trashes its shadow in lockstep.
func (s *Service) onTrashed(ctx context.Context, ev event.Event) error {
	id := ev.(event.TrashedEvent).RecordID

	if _, isShadow := s.ShadowOf(ctx, id); isShadow {
		return s.records.Delete(ctx, id)
	}

	if shadowID, hasShadow := s.ShadowID(ctx, id); hasShadow {
		// Trashing the shadow fires this handler again; suspend so the
		// shadow is kept trashed rather than discarded.
		resume := s.trashedSub.Suspend()
		defer resume()
		if err := s.records.Trash(ctx, shadowID); err != nil && !record.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// onUntrashed restores the shadow in lockstep with its original.
func (s *Service) onUntrashed(ctx context.Context, ev event.Event) error {
	id := ev.(event.UntrashedEvent).RecordID

	if shadowID, hasShadow := s.ShadowID(ctx, id); hasShadow {
		resume := s.untrashedSub.Suspend()
		defer resume()
		if err := s.records.Untrash(ctx, shadowID); err != nil && !record.IsNotFound(err) {
			return err
		}
	}
	return nil
}
