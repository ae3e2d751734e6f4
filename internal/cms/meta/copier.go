package meta

import (
	"context"

	"go.uber.org/zap"
)

// Copier implements bulk metadata copy and delete between records.
//
// Both operations are best-effort per key: a failure writing one key is
// logged and does not abort processing of the remaining keys, matching the
// host storage semantics of silent per-key failure.
type Copier struct {
	store  *Store
	logger *zap.Logger
}

// NewCopier creates a copier over the given store.
func NewCopier(store *Store, logger *zap.Logger) *Copier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Copier{store: store, logger: logger}
}

// CopyAll copies every non-excluded metadata key from source to dest and
// returns the number of values written.
//
// Single-valued keys overwrite dest's value for that key; multi-valued keys
// append each value, preserving whatever dest already holds. The asymmetry
// keeps host record-locking metadata intact and never drops legitimately
// repeated values.
func (c *Copier) CopyAll(ctx context.Context, sourceID, destID int64, exclude ExcludeSet) (int, error) {
	all, err := c.store.GetAll(ctx, sourceID)
	if err != nil {
		return 0, err
	}

	copied := 0
	for key, values := range all {
		if exclude.Contains(key) {
			continue
		}
		if len(values) == 1 {
			if err := c.store.Set(ctx, destID, key, values[0]); err != nil {
				c.logger.Warn("metadata copy failed for key",
					zap.String("key", key),
					zap.Int64("source", sourceID),
					zap.Int64("dest", destID),
					zap.Error(err))
				continue
			}
			copied++
			continue
		}
		for _, v := range values {
			if err := c.store.Add(ctx, destID, key, v); err != nil {
				c.logger.Warn("metadata append failed for key",
					zap.String("key", key),
					zap.Int64("source", sourceID),
					zap.Int64("dest", destID),
					zap.Error(err))
				continue
			}
			copied++
		}
	}
	return copied, nil
}

// DeleteAll deletes every non-excluded metadata key on the record and returns
// the number of keys removed. Keys not present are a no-op.
func (c *Copier) DeleteAll(ctx context.Context, recordID int64, exclude ExcludeSet) (int, error) {
	all, err := c.store.GetAll(ctx, recordID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for key := range all {
		if exclude.Contains(key) {
			continue
		}
		if err := c.store.Delete(ctx, recordID, key); err != nil {
			c.logger.Warn("metadata delete failed for key",
				zap.String("key", key),
				zap.Int64("record", recordID),
				zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}
