package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteSession binds the platform session cookie to a ScopedSession for
// go-router handlers.
type RouteSession struct {
	manager        *SessionManager
	cfg            Config
	routes         FlowRoutes
	cookieDuration time.Duration
	newID          func() string
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

// RouteSessionOption customizes a RouteSession.
type RouteSessionOption func(*RouteSession)

// WithCookieDuration sets the session cookie lifetime.
func WithCookieDuration(d time.Duration) RouteSessionOption {
	return func(a *RouteSession) {
		if d > 0 {
			a.cookieDuration = d
		}
	}
}

// WithFlowRoutes overrides the routes used for pending flow redirects.
func WithFlowRoutes(routes FlowRoutes) RouteSessionOption {
	return func(a *RouteSession) {
		if routes != nil {
			a.routes = routes
		}
	}
}

// WithSessionIDGenerator overrides how new platform session ids are minted.
func WithSessionIDGenerator(fn func() string) RouteSessionOption {
	return func(a *RouteSession) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// NewRouteSession returns go-router session helpers around manager.
func NewRouteSession(manager *SessionManager, cfg Config, opts ...RouteSessionOption) *RouteSession {
	a := &RouteSession{
		manager:        manager,
		cfg:            cfg,
		routes:         DefaultFlowRoutes(),
		cookieDuration: 30 * 24 * time.Hour,
		newID:          func() string { return uuid.NewString() },
		Logger:         defLogger{},
	}
	a.ErrorHandler = a.defaultErrHandler

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Middleware resolves or mints the platform session id and makes the scoped
// session available through Locals and the request context.
func (a *RouteSession) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			a.Scope(c)
			return next(c)
		}
	}
}

// RequireSession rejects requests without a usable access token.
func (a *RouteSession) RequireSession() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			scoped := a.Scope(c)
			if _, err := scoped.RequireAccessToken(c.Context()); err != nil {
				return a.ErrorHandler(c, err)
			}
			return next(c)
		}
	}
}

// Scope returns the request's ScopedSession, creating it when the
// middleware has not run yet.
func (a *RouteSession) Scope(c router.Context) *ScopedSession {
	if scoped, ok := ScopedSessionFromRouter(c, DefaultSessionLocalsKey); ok {
		return scoped
	}

	name := a.cookieName()
	sid := c.Cookies(name)
	if sid == "" {
		sid = a.newID()
		a.setSessionCookie(c, sid)
		a.Logger.Debug("minted platform session", "session_id", sid)
	}

	scoped := a.manager.Scope(sid, RouterHeaderWriter(c))
	c.Locals(DefaultSessionLocalsKey, scoped)
	c.SetContext(WithScopedSession(c.Context(), scoped))
	return scoped
}

// NavigateToPendingFlow redirects to the route of the pending flow in r.
func (a *RouteSession) NavigateToPendingFlow(c router.Context, r AuthResponse) (bool, error) {
	return a.routes.NavigateToPendingFlow(c, r)
}

// Logout clears the stored tokens and expires the session cookie.
func (a *RouteSession) Logout(c router.Context) error {
	if err := a.Scope(c).Clear(c.Context()); err != nil {
		return err
	}
	a.cookieDel(c, a.cookieName())
	return nil
}

func (a *RouteSession) cookieName() string {
	if a.cfg != nil && a.cfg.GetSessionCookieName() != "" {
		return a.cfg.GetSessionCookieName()
	}
	return "storefront_sid"
}

func (a *RouteSession) setSessionCookie(c router.Context, sid string) {
	c.Cookie(&router.Cookie{
		Name:     a.cookieName(),
		Value:    sid,
		Expires:  time.Now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSession) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSession) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Session middleware error",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	code := richErr.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}

	return c.JSON(code, map[string]any{
		"status": code,
		"errors": []map[string]any{{
			"code":    richErr.TextCode,
			"message": richErr.Message,
		}},
	})
}
