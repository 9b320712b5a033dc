package auth

import (
	"context"
	"fmt"
	"net/http"
)

// Logger is the logging contract used across the package. Messages take
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds session persistence options
type Config interface {
	GetProviderBaseURL() string
	GetForwardedHost() string
	GetUserPath() string
	GetSessionCookieName() string
	GetLocale() string
}

// SessionStore persists SessionData keyed by the platform session id. Get
// returns (nil, nil) when no session exists.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*SessionData, error)
	Save(ctx context.Context, sessionID string, data *SessionData) error
	Delete(ctx context.Context, sessionID string) error
}

// UserFetcher issues the single profile request used after a login or token
// rotation. It returns the raw payload so it can be validated here.
type UserFetcher interface {
	FetchUser(ctx context.Context, id UserID, headers http.Header) ([]byte, error)
}

// HeaderWriter writes headers on the storefront's outgoing response.
type HeaderWriter interface {
	SetHeader(key, value string)
}

// HeaderWriterFunc adapts a function to HeaderWriter.
type HeaderWriterFunc func(key, value string)

// SetHeader implements HeaderWriter.
func (f HeaderWriterFunc) SetHeader(key, value string) {
	if f == nil {
		return
	}
	f(key, value)
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] AUTH %s%s\n", msg, formatArgs(args))
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	out := ""
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
			continue
		}
		out += fmt.Sprintf(" %v", args[i])
	}
	return out
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
