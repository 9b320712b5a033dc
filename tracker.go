package auth

import (
	"context"
	"sync"
	"time"
)

// Tracker owns the previous response of one logical client session and
// turns each new response into at most one dispatched event.
type Tracker struct {
	mu         sync.Mutex
	sessionID  string
	previous   AuthResponse
	classifier *Classifier
	dispatcher *Dispatcher
	now        func() time.Time
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerClassifier overrides the classifier.
func WithTrackerClassifier(c *Classifier) TrackerOption {
	return func(t *Tracker) {
		if c != nil {
			t.classifier = c
		}
	}
}

// WithTrackerDispatcher sets the dispatcher events are delivered to.
func WithTrackerDispatcher(d *Dispatcher) TrackerOption {
	return func(t *Tracker) {
		t.dispatcher = d
	}
}

// WithTrackerClock injects a custom clock.
func WithTrackerClock(clock func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if clock != nil {
			t.now = clock
		}
	}
}

// NewTracker returns a tracker with an empty snapshot.
func NewTracker(sessionID string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		sessionID:  sessionID,
		classifier: defaultClassifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Observe classifies resp against the stored snapshot, stores resp as the
// new snapshot and dispatches the event when there is one.
func (t *Tracker) Observe(ctx context.Context, resp AuthResponse) AuthChangeEvent {
	t.mu.Lock()
	previous := t.previous
	event := t.classifier.Classify(ctx, resp, previous)
	t.previous = resp
	t.mu.Unlock()

	if event != EventNone && t.dispatcher != nil {
		t.dispatcher.Dispatch(ctx, ChangeNotification{
			Event:      event,
			Response:   resp,
			Previous:   previous,
			SessionID:  t.sessionID,
			OccurredAt: t.now(),
		})
	}
	return event
}

// Snapshot returns the last observed response, nil before the first one.
func (t *Tracker) Snapshot() AuthResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.previous
}

// Reset forgets the snapshot.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.previous = nil
	t.mu.Unlock()
}

// TrackerRegistry keys trackers by platform session id.
type TrackerRegistry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	opts     []TrackerOption
}

// NewTrackerRegistry returns a registry whose trackers share opts.
func NewTrackerRegistry(opts ...TrackerOption) *TrackerRegistry {
	return &TrackerRegistry{
		trackers: make(map[string]*Tracker),
		opts:     opts,
	}
}

// Get returns the tracker for sessionID, creating it on first use.
func (r *TrackerRegistry) Get(sessionID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trackers[sessionID]; ok {
		return t
	}
	t := NewTracker(sessionID, r.opts...)
	r.trackers[sessionID] = t
	return t
}

// Forget drops the tracker for sessionID.
func (r *TrackerRegistry) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.trackers, sessionID)
	r.mu.Unlock()
}

// Len returns the number of live trackers.
func (r *TrackerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
