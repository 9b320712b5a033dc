package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultSessionLocalsKey is the Locals key the middleware stores the scoped
// session under.
const DefaultSessionLocalsKey = "auth_session"

var sessionCtxKey = &contextKey{"auth_session"}

type contextKey struct {
	name string
}

// WithScopedSession sets the ScopedSession in the given context
func WithScopedSession(ctx context.Context, s *ScopedSession) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// FromContext finds the ScopedSession in the context.
func FromContext(ctx context.Context) (*ScopedSession, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*ScopedSession)
	return raw, ok && raw != nil
}

// ScopedSessionFromRouter extracts the ScopedSession from the router context
func ScopedSessionFromRouter(ctx router.Context, key string) (*ScopedSession, bool) {
	if key == "" {
		key = DefaultSessionLocalsKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return FromContext(ctx.Context())
	}
	s, ok := raw.(*ScopedSession)
	return s, ok && s != nil
}

// RouterHeaderWriter writes response headers through a go-router context.
func RouterHeaderWriter(ctx router.Context) HeaderWriter {
	return HeaderWriterFunc(func(key, value string) {
		ctx.SetHeader(key, value)
	})
}
