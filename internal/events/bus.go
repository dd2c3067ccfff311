// Package events is the in-process fan-out used to hand build notifications from
// the orchestrator to its consumers (live-reload clients, the NATS mirror).
//
// Events are not durable. Subscribers receive them on bounded channels; Publish
// applies backpressure until every matching subscriber has accepted the event or
// the context is canceled.
package events

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Bus routes published values to subscribers by Go type.
type Bus struct {
	mu     sync.RWMutex
	subs   map[reflect.Type][]*subscription
	nextID atomic.Uint64
	closed atomic.Bool
	once   sync.Once
}

type subscription struct {
	id      uint64
	deliver func(ctx context.Context, evt any) error
	done    func()
}

func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type][]*subscription)}
}

// Subscribe registers a subscription for events of type T and returns the receive
// channel plus an idempotent unsubscribe function.
//
// If T is an interface, events whose concrete type implements T are delivered.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	eventType := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	// quit unblocks pending sends before ch is closed; mu keeps sends and close apart.
	var (
		mu        sync.RWMutex
		closed    bool
		quit      = make(chan struct{})
		closeOnce sync.Once
	)
	closeCh := func() {
		closeOnce.Do(func() {
			close(quit)
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}

	if b.closed.Load() {
		closeCh()
		return ch, func() {}
	}

	sub := &subscription{
		id: b.nextID.Add(1),
		deliver: func(ctx context.Context, evt any) error {
			v, ok := evt.(T)
			if !ok {
				return ferrors.InternalError("event type mismatch").
					WithContext("expected", eventType.String()).
					WithContext("actual", reflect.TypeOf(evt).String()).
					Build()
			}
			mu.RLock()
			defer mu.RUnlock()
			if closed {
				return nil
			}
			select {
			case ch <- v:
				return nil
			case <-quit:
				return nil
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "event publish canceled").
					WithContext("event_type", eventType.String()).
					Build()
			}
		},
		done: closeCh,
	}

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		closeCh()
		return ch, func() {}
	}
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.mu.Unlock()

	var unsubOnce sync.Once
	return ch, func() {
		unsubOnce.Do(func() {
			b.remove(eventType, sub.id)
			closeCh()
		})
	}
}

func (b *Bus) remove(eventType reflect.Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[eventType]
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.subs, eventType)
		return
	}
	b.subs[eventType] = list
}

// SubscriberCount returns the number of active subscribers for events of type T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[reflect.TypeFor[T]()])
}

// Publish delivers evt to every matching subscriber in subscription order.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	if evt == nil {
		return ferrors.ValidationError("event cannot be nil").Build()
	}
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}
	if b.closed.Load() {
		return ferrors.RuntimeError("event bus is closed").Build()
	}

	evtType := reflect.TypeOf(evt)

	b.mu.RLock()
	var targets []*subscription
	for subType, list := range b.subs {
		if subType == evtType || (subType.Kind() == reflect.Interface && evtType.Implements(subType)) {
			targets = append(targets, list...)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the bus and all subscription channels.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.closed.Store(true)

		b.mu.Lock()
		var all []*subscription
		for _, list := range b.subs {
			all = append(all, list...)
		}
		b.subs = make(map[reflect.Type][]*subscription)
		b.mu.Unlock()

		for _, s := range all {
			s.done()
		}
	})
}
