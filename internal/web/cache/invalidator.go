package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/event"
)

// BindInvalidation clears the cache on every record mutation. Registered at
// a late priority so it observes the final state of compound operations
// (a shadow publish clears once per nested save, which is harmless).
func BindInvalidation(bus *event.Bus, c Cache, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clear := func(ctx context.Context, ev event.Event) error {
		if err := c.Clear(ctx); err != nil {
			logger.Warn("cache invalidation failed", zap.Error(err))
		}
		return nil
	}
	bus.Subscribe(event.RecordSaved, 95, clear)
	bus.Subscribe(event.Trashed, 95, clear)
	bus.Subscribe(event.Untrashed, 95, clear)
	bus.Subscribe(event.BeforeDelete, 95, clear)
}
