package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PriorityOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.Subscribe(RecordSaved, 90, func(ctx context.Context, ev Event) error {
		order = append(order, "late")
		return nil
	})
	bus.Subscribe(RecordSaved, 10, func(ctx context.Context, ev Event) error {
		order = append(order, "early")
		return nil
	})
	bus.Subscribe(RecordSaved, 50, func(ctx context.Context, ev Event) error {
		order = append(order, "mid")
		return nil
	})

	bus.Publish(context.Background(), RecordSavedEvent{RecordID: 1})

	assert.Equal(t, []string{"early", "mid", "late"}, order)
}

func TestBus_EqualPriorityIsFIFO(t *testing.T) {
	bus := NewBus(nil)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(Trashed, 10, func(ctx context.Context, ev Event) error {
			order = append(order, i)
			return nil
		})
	}

	bus.Publish(context.Background(), TrashedEvent{RecordID: 1})

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBus_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	bus := NewBus(nil)

	var reached bool
	bus.Subscribe(BeforeDelete, 10, func(ctx context.Context, ev Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(BeforeDelete, 20, func(ctx context.Context, ev Event) error {
		reached = true
		return nil
	})

	bus.Publish(context.Background(), BeforeDeleteEvent{RecordID: 1})

	assert.True(t, reached)
}

func TestSubscription_SuspendResume(t *testing.T) {
	bus := NewBus(nil)

	var calls int
	sub := bus.Subscribe(Trashed, 10, func(ctx context.Context, ev Event) error {
		calls++
		return nil
	})

	resume := sub.Suspend()
	bus.Publish(context.Background(), TrashedEvent{RecordID: 1})
	require.Equal(t, 0, calls)

	resume()
	bus.Publish(context.Background(), TrashedEvent{RecordID: 1})
	assert.Equal(t, 1, calls)
}

func TestSubscription_NestedSuspend(t *testing.T) {
	bus := NewBus(nil)

	var calls int
	sub := bus.Subscribe(Untrashed, 10, func(ctx context.Context, ev Event) error {
		calls++
		return nil
	})

	outer := sub.Suspend()
	inner := sub.Suspend()
	inner()

	// Still suspended until the outer scope releases.
	bus.Publish(context.Background(), UntrashedEvent{RecordID: 1})
	require.Equal(t, 0, calls)

	outer()
	bus.Publish(context.Background(), UntrashedEvent{RecordID: 1})
	assert.Equal(t, 1, calls)
}

func TestBus_SubscribeOnce(t *testing.T) {
	bus := NewBus(nil)

	var calls int
	bus.SubscribeOnce(RecordSaved, 90, func(ctx context.Context, ev Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), RecordSavedEvent{RecordID: 1})
	bus.Publish(context.Background(), RecordSavedEvent{RecordID: 1})

	assert.Equal(t, 1, calls)
}

func TestBus_SubscribeOnceReentrant(t *testing.T) {
	bus := NewBus(nil)

	// The once handler republishes its own event; deregistration happens
	// before invocation, so it must still fire exactly once.
	var calls int
	bus.SubscribeOnce(RecordSaved, 90, func(ctx context.Context, ev Event) error {
		calls++
		bus.Publish(ctx, RecordSavedEvent{RecordID: 2})
		return nil
	})

	bus.Publish(context.Background(), RecordSavedEvent{RecordID: 1})

	assert.Equal(t, 1, calls)
}

func TestBus_SubscribeDuringDispatchNotInvokedSameCycle(t *testing.T) {
	bus := NewBus(nil)

	var lateCalls int
	bus.Subscribe(RecordSaved, 10, func(ctx context.Context, ev Event) error {
		bus.Subscribe(RecordSaved, 90, func(ctx context.Context, ev Event) error {
			lateCalls++
			return nil
		})
		return nil
	})

	bus.Publish(context.Background(), RecordSavedEvent{RecordID: 1})
	assert.Equal(t, 0, lateCalls)

	bus.Publish(context.Background(), RecordSavedEvent{RecordID: 1})
	assert.Equal(t, 1, lateCalls)
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus(nil)

	// Mirrors the server's publish flow: a transition handler registers a
	// one-shot save handler while other requests are publishing saves.
	// Meaningful under the race detector.
	var fired atomic.Int64
	bus.Subscribe(StatusTransition, 10, func(ctx context.Context, ev Event) error {
		bus.SubscribeOnce(RecordSaved, 90, func(ctx context.Context, ev Event) error {
			fired.Add(1)
			return nil
		})
		return nil
	})

	const iterations = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			bus.Publish(context.Background(), StatusTransitionEvent{RecordID: int64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			bus.Publish(context.Background(), RecordSavedEvent{RecordID: int64(i)})
		}
	}()
	wg.Wait()

	// Drain any one-shots left pending when the saves finished first.
	bus.Publish(context.Background(), RecordSavedEvent{RecordID: 0})
	assert.LessOrEqual(t, fired.Load(), int64(iterations))
}

func TestBus_ConcurrentSuspendResume(t *testing.T) {
	bus := NewBus(nil)

	sub := bus.Subscribe(Trashed, 10, func(ctx context.Context, ev Event) error {
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			resume := sub.Suspend()
			resume()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			bus.Publish(context.Background(), TrashedEvent{RecordID: 1})
		}
	}()
	wg.Wait()

	assert.True(t, bus.HasSubscribers(Trashed))
}

func TestBus_HasSubscribers(t *testing.T) {
	bus := NewBus(nil)
	assert.False(t, bus.HasSubscribers(Trashed))

	sub := bus.Subscribe(Trashed, 10, func(ctx context.Context, ev Event) error { return nil })
	assert.True(t, bus.HasSubscribers(Trashed))

	resume := sub.Suspend()
	assert.False(t, bus.HasSubscribers(Trashed))
	resume()

	sub.Cancel()
	assert.False(t, bus.HasSubscribers(Trashed))
}

func TestEventTypeStrings(t *testing.T) {
	cases := map[Type]string{
		StatusTransition: "status_transition",
		RecordSaved:      "record_saved",
		BeforeDelete:     "before_delete",
		Trashed:          "trashed",
		Untrashed:        "untrashed",
		RevisionCreated:  "revision_created",
		RevisionRestored: "revision_restored",
		Type(99):         "unknown",
	}
	for typ, want := range cases {
		assert.Equal(t, want, typ.String())
	}
}
