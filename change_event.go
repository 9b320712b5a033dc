package auth

import (
	"context"
	"net/http"
	"reflect"
)

// AuthChangeEvent classifies the transition between two responses.
type AuthChangeEvent string

const (
	// EventNone means nothing observable changed; callers must not dispatch.
	EventNone                     AuthChangeEvent = ""
	EventLoggedIn                 AuthChangeEvent = "logged_in"
	EventLoggedOut                AuthChangeEvent = "logged_out"
	EventReauthenticated          AuthChangeEvent = "reauthenticated"
	EventReauthenticationRequired AuthChangeEvent = "reauthentication_required"
	EventFlowUpdated              AuthChangeEvent = "flow_updated"
)

// String implements fmt.Stringer.
func (e AuthChangeEvent) String() string {
	if e == EventNone {
		return "none"
	}
	return string(e)
}

// ClassifierOption customizes a Classifier.
type ClassifierOption func(*Classifier)

// WithNotifier sets the notifier used for the session expiry notice.
func WithNotifier(n Notifier) ClassifierOption {
	return func(c *Classifier) {
		c.notifier = normalizeNotifier(n)
	}
}

// WithClassifierLogger overrides the classifier logger.
func WithClassifierLogger(logger Logger) ClassifierOption {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Classifier turns a (previous, next) response pair into at most one
// AuthChangeEvent. Apart from the expiry notice it has no side effects and
// is safe for concurrent use.
type Classifier struct {
	notifier Notifier
	logger   Logger
}

// NewClassifier returns a classifier with the given options.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		notifier: noopNotifier{},
		logger:   NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var defaultClassifier = NewClassifier()

// DetermineAuthChangeEvent classifies next against previous without emitting
// notices. previous may be nil.
func DetermineAuthChangeEvent(next, previous AuthResponse) AuthChangeEvent {
	return defaultClassifier.Classify(context.Background(), next, previous)
}

// Classify returns the event for the transition previous -> next.
func (c *Classifier) Classify(ctx context.Context, next, previous AuthResponse) AuthChangeEvent {
	if statusOf(next) == http.StatusGone {
		c.notifier.Notify(ctx, NoticeSessionExpired)
		c.logger.Debug("auth session invalidated by provider", "event", EventLoggedOut)
		return EventLoggedOut
	}

	if isNil(next) && isNil(previous) {
		return EventNone
	}
	if reflect.DeepEqual(next, previous) {
		return EventNone
	}

	current := NewAuthInfo(next)
	prevInfo := NewAuthInfo(previous)

	// A different user's state is never diffed against the current one.
	if !current.sameUser(prevInfo) {
		c.logger.Debug("auth user changed, ignoring previous snapshot",
			"previous_user", prevInfo.User.ID, "user", current.User.ID)
		prevInfo = AuthInfo{}
		previous = nil
	}

	event := classify(current, prevInfo, next, previous)
	if event != EventNone {
		c.logger.Debug("auth change classified", "event", event, "status", statusOf(next))
	}
	return event
}

func classify(current, prev AuthInfo, next, previous AuthResponse) AuthChangeEvent {
	switch {
	case !prev.IsAuthenticated && current.IsAuthenticated:
		if current.RequiresReauthentication {
			return EventReauthenticationRequired
		}
		if carriesFreshToken(next) {
			return EventLoggedIn
		}
		return EventNone

	case prev.IsAuthenticated && current.IsAuthenticated:
		switch {
		case !prev.RequiresReauthentication && current.RequiresReauthentication:
			return EventReauthenticationRequired
		case prev.RequiresReauthentication && !current.RequiresReauthentication:
			return EventReauthenticated
		case methodsIncreased(previous, next):
			return EventReauthenticated
		case prev.RequiresReauthentication && current.RequiresReauthentication:
			return EventReauthenticationRequired
		}
		return EventNone

	case !prev.IsAuthenticated && !current.IsAuthenticated:
		if flowUpdated(current.PendingFlow, prev.PendingFlow) {
			return EventFlowUpdated
		}
		return EventLoggedOut

	case prev.IsAuthenticated && !current.IsAuthenticated:
		return EventLoggedOut
	}

	return EventNone
}

func carriesFreshToken(r AuthResponse) bool {
	res, ok := r.(*SuccessResponse)
	if !ok || res == nil {
		return false
	}
	return res.Meta.AccessToken != "" || res.Meta.SessionToken != ""
}

// methodsIncreased compares method counts only. Both sides must be success
// payloads carrying a methods array; anything else is false.
func methodsIncreased(previous, next AuthResponse) bool {
	prev, ok := previous.(*SuccessResponse)
	if !ok || prev == nil || prev.Data.Methods == nil {
		return false
	}
	cur, ok := next.(*SuccessResponse)
	if !ok || cur == nil || cur.Data.Methods == nil {
		return false
	}
	return len(prev.Data.Methods) < len(cur.Data.Methods)
}

// flowUpdated compares the pending flows of both sides. A flow that was
// resolved before has no pending counterpart, so it counts as updated.
func flowUpdated(next, prev *Flow) bool {
	if next == nil {
		return false
	}
	return prev == nil || prev.ID != next.ID
}

func isNil(r AuthResponse) bool {
	switch res := r.(type) {
	case nil:
		return true
	case *SuccessResponse:
		return res == nil
	case *FailureResponse:
		return res == nil
	}
	return false
}
