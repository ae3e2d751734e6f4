// Package shadow implements shadow drafts: editable duplicates of published
// records that can later be published back onto their original. The package
// holds the duplication service and the state machine that keeps the
// original/shadow pair consistent across the save, trash, and delete
// lifecycle.
package shadow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/meta"
	"github.com/redline-cms/redline/internal/cms/record"
)

// Overrides selects record fields replaced during duplication. Nil fields
// keep the source's value.
type Overrides struct {
	Slug   *string
	Status *string
	Title  *string
}

// Duplicator copies records together with their non-excluded metadata.
type Duplicator struct {
	records *record.Store
	copier  *meta.Copier
	excl    *meta.Exclusions
	logger  *zap.Logger
}

// NewDuplicator creates a duplication service.
func NewDuplicator(records *record.Store, copier *meta.Copier, excl *meta.Exclusions, logger *zap.Logger) *Duplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Duplicator{records: records, copier: copier, excl: excl, logger: logger}
}

// Duplicate creates a new record copying all fields from the source, applies
// overrides, copies non-excluded metadata, and returns the new id.
func (d *Duplicator) Duplicate(ctx context.Context, sourceID int64, ov Overrides) (int64, error) {
	src, err := d.records.Get(ctx, sourceID)
	if err != nil {
		return 0, err
	}

	dup := &record.Record{
		Type:   src.Type,
		Status: src.Status,
		Slug:   src.Slug,
		Title:  src.Title,
		Body:   src.Body,
	}
	applyOverrides(dup, ov)

	newID, err := d.records.Create(ctx, dup)
	if err != nil {
		return 0, fmt.Errorf("failed to duplicate record %d: %w", sourceID, err)
	}

	if _, err := d.copier.CopyAll(ctx, sourceID, newID, d.excl.For(meta.ContextDuplicate)); err != nil {
		d.logger.Warn("metadata copy during duplication failed",
			zap.Int64("source", sourceID),
			zap.Int64("duplicate", newID),
			zap.Error(err))
	}
	return newID, nil
}

// Overwrite pushes the source's content and metadata onto an existing record.
// The destination keeps its own slug, status, type, and parentage; its
// non-excluded metadata is replaced by the source's.
func (d *Duplicator) Overwrite(ctx context.Context, sourceID, destID int64) error {
	src, err := d.records.Get(ctx, sourceID)
	if err != nil {
		return err
	}
	dst, err := d.records.Get(ctx, destID)
	if err != nil {
		return err
	}

	dst.Title = src.Title
	dst.Body = src.Body
	if err := d.records.Update(ctx, dst); err != nil {
		return fmt.Errorf("failed to overwrite record %d: %w", destID, err)
	}

	excl := d.excl.For(meta.ContextDuplicate)
	if _, err := d.copier.DeleteAll(ctx, destID, excl); err != nil {
		d.logger.Warn("metadata clear during overwrite failed",
			zap.Int64("dest", destID), zap.Error(err))
	}
	if _, err := d.copier.CopyAll(ctx, sourceID, destID, excl); err != nil {
		d.logger.Warn("metadata copy during overwrite failed",
			zap.Int64("source", sourceID),
			zap.Int64("dest", destID),
			zap.Error(err))
	}
	return nil
}

func applyOverrides(r *record.Record, ov Overrides) {
	if ov.Slug != nil {
		r.Slug = *ov.Slug
	}
	if ov.Status != nil {
		r.Status = *ov.Status
	}
	if ov.Title != nil {
		r.Title = *ov.Title
	}
}
