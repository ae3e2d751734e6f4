package event

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Handler processes a single event. A non-nil error is logged by the bus and
// does not stop dispatch to later handlers.
type Handler func(ctx context.Context, ev Event) error

// Subscription is a registered handler. It supports scoped suspension so a
// handler can disable itself for the duration of a call it knows will
// re-trigger the same event class.
//
// All fields are guarded by the owning bus's mutex.
type Subscription struct {
	bus       *Bus
	eventType Type
	priority  int
	seq       int
	fn        Handler
	once      bool
	canceled  bool
	suspended int
}

// Suspend disables the subscription and returns the function that re-enables
// it. Callers are expected to defer the returned func so the handler is
// reattached on every exit path. Nested suspensions stack.
func (s *Subscription) Suspend() (resume func()) {
	s.bus.mu.Lock()
	s.suspended++
	s.bus.mu.Unlock()
	return func() {
		s.bus.mu.Lock()
		s.suspended--
		s.bus.mu.Unlock()
	}
}

// Cancel permanently removes the subscription from the bus.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	s.canceled = true
	s.bus.mu.Unlock()
}

// claim checks whether the subscription should receive the event and, for
// once subscriptions, deregisters it in the same critical section so the
// handler runs at most once even under concurrent publishes.
func (s *Subscription) claim() bool {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.canceled || s.suspended > 0 {
		return false
	}
	if s.once {
		s.canceled = true
	}
	return true
}

// Bus dispatches events synchronously to subscribers ordered by numeric
// priority (lower runs first; registration order breaks ties). It is safe for
// concurrent use: subscription state is guarded by a mutex, and handlers run
// outside it so they may subscribe, suspend, and republish freely.
type Bus struct {
	logger  *zap.Logger
	mu      sync.Mutex
	subs    map[Type][]*Subscription
	nextSeq int
}

// NewBus creates an event bus. A nil logger defaults to a no-op logger.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[Type][]*Subscription),
	}
}

// Subscribe registers a handler for an event type at the given priority.
func (b *Bus) Subscribe(t Type, priority int, fn Handler) *Subscription {
	return b.add(t, priority, fn, false)
}

// SubscribeOnce registers a handler that deregisters itself immediately
// before its first invocation, guaranteeing at-most-once execution even if
// the handler itself republishes the event.
func (b *Bus) SubscribeOnce(t Type, priority int, fn Handler) *Subscription {
	return b.add(t, priority, fn, true)
}

func (b *Bus) add(t Type, priority int, fn Handler, once bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	sub := &Subscription{
		bus:       b,
		eventType: t,
		priority:  priority,
		seq:       b.nextSeq,
		fn:        fn,
		once:      once,
	}
	b.subs[t] = append(b.subs[t], sub)
	sort.SliceStable(b.subs[t], func(i, j int) bool {
		a, c := b.subs[t][i], b.subs[t][j]
		if a.priority != c.priority {
			return a.priority < c.priority
		}
		return a.seq < c.seq
	})
	return sub
}

// Publish dispatches the event to all active subscriptions in priority order.
// Handler errors are logged and swallowed so one subscriber cannot abort the
// host pipeline for the others.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	t := ev.EventType()

	// Snapshot the list: handlers may subscribe or cancel during dispatch,
	// and such changes must not affect the current cycle.
	b.mu.Lock()
	current := make([]*Subscription, len(b.subs[t]))
	copy(current, b.subs[t])
	b.mu.Unlock()

	for _, sub := range current {
		if !sub.claim() {
			continue
		}
		if err := sub.fn(ctx, ev); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event", t.String()),
				zap.Error(err))
		}
	}

	b.mu.Lock()
	b.compact(t)
	b.mu.Unlock()
}

// compact drops canceled subscriptions. Callers hold b.mu.
func (b *Bus) compact(t Type) {
	subs := b.subs[t][:0]
	for _, sub := range b.subs[t] {
		if !sub.canceled {
			subs = append(subs, sub)
		}
	}
	b.subs[t] = subs
}

// HasSubscribers reports whether any active subscription exists for the type.
func (b *Bus) HasSubscribers(t Type) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[t] {
		if !sub.canceled && sub.suspended == 0 {
			return true
		}
	}
	return false
}
