package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/goliatone/go-headless-auth"
)

const (
	// MetadataKeyStatus stores the HTTP status of the response that caused the event.
	MetadataKeyStatus = "status"
	// MetadataKeyPreviousStatus stores the status of the previous snapshot, when any.
	MetadataKeyPreviousStatus = "previous_status"
	// MetadataKeyPendingFlow stores the id of the pending flow, when any.
	MetadataKeyPendingFlow = "pending_flow"
	// MetadataKeySessionID stores the platform session id.
	MetadataKeySessionID = "session_id"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "session"
	defaultActorID    = "anonymous"
	verbPrefix        = "auth."
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(auth.ChangeNotification) string
}

// Normalize converts an auth.ChangeNotification into a generic normalized shape.
func Normalize(n auth.ChangeNotification, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		userID(n.Response),
		userID(n.Previous),
		strings.TrimSpace(options.actorFallback),
	)

	occurredAt := n.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       verbPrefix + n.Event.String(),
		ObjectType: strings.TrimSpace(options.objectType),
		ObjectID:   resolveObjectID(n, options.objectIDResolver),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(n),
		OccurredAt: occurredAt,
	}
}

// Sink adapts a delivery func into an auth.EventSink that normalizes every
// notification first.
func Sink(deliver func(context.Context, Normalized) error, opts ...Option) auth.EventSink {
	return auth.EventSinkFunc(func(ctx context.Context, n auth.ChangeNotification) error {
		if deliver == nil {
			return nil
		}
		return deliver(ctx, Normalize(n, opts...))
	})
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ChangeNotification.
func WithObjectIDResolver(resolver func(auth.ChangeNotification) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the final actor-id fallback when no user is known.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func resolveObjectID(n auth.ChangeNotification, resolver func(auth.ChangeNotification) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(n))
	}
	return strings.TrimSpace(n.SessionID)
}

func userID(r auth.AuthResponse) string {
	info := auth.NewAuthInfo(r)
	if info.User == nil {
		return ""
	}
	return strings.TrimSpace(info.User.ID.String())
}

func normalizeMetadata(n auth.ChangeNotification) map[string]any {
	metadata := map[string]any{}

	if status := statusCode(n.Response); status != 0 {
		metadata[MetadataKeyStatus] = status
	}
	if status := statusCode(n.Previous); status != 0 {
		metadata[MetadataKeyPreviousStatus] = status
	}
	if flow := auth.GetPendingFlow(n.Response); flow != nil {
		metadata[MetadataKeyPendingFlow] = flow.ID
	}
	if sid := strings.TrimSpace(n.SessionID); sid != "" {
		metadata[MetadataKeySessionID] = sid
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func statusCode(r auth.AuthResponse) int {
	switch res := r.(type) {
	case *auth.SuccessResponse:
		if res != nil {
			return res.StatusCode()
		}
	case *auth.FailureResponse:
		if res != nil {
			return res.StatusCode()
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
