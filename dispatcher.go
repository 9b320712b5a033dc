package auth

import (
	"context"
	"sync"
	"time"
)

// ChangeNotification is delivered to every subscriber when a response
// changes the authentication state.
type ChangeNotification struct {
	Event      AuthChangeEvent
	Response   AuthResponse
	Previous   AuthResponse
	SessionID  string
	OccurredAt time.Time
}

// EventSink consumes change notifications.
type EventSink interface {
	Record(ctx context.Context, n ChangeNotification) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, n ChangeNotification) error

// Record implements EventSink.
func (f EventSinkFunc) Record(ctx context.Context, n ChangeNotification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

type subscription struct {
	id   uint64
	sink EventSink
}

// Dispatcher fans notifications out to subscribers. Delivery is best effort:
// a failing sink is logged and the remaining sinks still run.
type Dispatcher struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	logger Logger
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger overrides the dispatcher logger.
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher returns a dispatcher without subscribers.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{logger: defLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Subscribe registers sink and returns a func that removes it. Calling the
// returned func more than once is a no-op.
func (d *Dispatcher) Subscribe(sink EventSink) func() {
	if sink == nil {
		return func() {}
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, sink: sink})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(id) })
	}
}

func (d *Dispatcher) unsubscribe(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, sub := range d.subs {
		if sub.id == id {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Dispatch delivers n to every subscriber in subscription order. EventNone
// is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, n ChangeNotification) {
	if n.Event == EventNone {
		return
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}

	d.mu.RLock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.sink.Record(ctx, n); err != nil {
			d.logger.Error("auth change sink failed",
				"event", n.Event,
				"session_id", n.SessionID,
				"error", err,
			)
		}
	}
}
