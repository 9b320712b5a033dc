package auth

import (
	"context"
	"net/http"
	"time"
)

// ManagerOption customizes a SessionManager.
type ManagerOption func(*SessionManager)

// WithUserFetcher sets the transport used for profile refetches.
func WithUserFetcher(f UserFetcher) ManagerOption {
	return func(m *SessionManager) {
		m.fetcher = f
	}
}

// WithManagerLogger overrides the manager logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerForwardedHost sets the X-Forwarded-Host sent to the provider.
func WithManagerForwardedHost(host string) ManagerOption {
	return func(m *SessionManager) {
		m.forwardedHost = host
	}
}

// WithManagerConfig applies the values of a Config.
func WithManagerConfig(cfg Config) ManagerOption {
	return func(m *SessionManager) {
		if cfg == nil {
			return
		}
		m.forwardedHost = cfg.GetForwardedHost()
	}
}

// WithManagerClock injects a custom clock (useful for tests).
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// SessionManager persists provider tokens per platform session. It holds
// no per request state; Scope hands out a ScopedSession for each request.
type SessionManager struct {
	store         SessionStore
	fetcher       UserFetcher
	logger        Logger
	forwardedHost string
	now           func() time.Time
}

// NewSessionManager returns a manager backed by store.
func NewSessionManager(store SessionStore, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		store:  store,
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.store == nil {
		m.store = NewMemorySessionStore()
	}
	return m
}

// CreateHeaders builds provider request headers using the manager's
// forwarded host.
func (m *SessionManager) CreateHeaders(sessionToken, accessToken string) http.Header {
	return CreateHeaders(sessionToken, accessToken, WithForwardedHost(m.forwardedHost))
}

// Scope binds the manager to one inbound request. w receives the tokens
// echoed back to the storefront client and may be nil.
func (m *SessionManager) Scope(sessionID string, w HeaderWriter) *ScopedSession {
	if w == nil {
		w = HeaderWriterFunc(nil)
	}
	return &ScopedSession{
		manager:   m,
		sessionID: sessionID,
		headers:   w,
	}
}

// ScopedSession reads and writes the session of a single request. It must
// not be shared across requests.
type ScopedSession struct {
	manager   *SessionManager
	sessionID string
	headers   HeaderWriter
}

// ID returns the platform session id.
func (s *ScopedSession) ID() string {
	return s.sessionID
}

func (s *ScopedSession) load(ctx context.Context) (*SessionData, error) {
	data, err := s.manager.store.Get(ctx, s.sessionID)
	if err != nil {
		return nil, withDetails(ErrSessionStore, err, map[string]any{
			"operation":  "get",
			"session_id": s.sessionID,
		})
	}
	return data, nil
}

func (s *ScopedSession) save(ctx context.Context, data *SessionData) error {
	data.UpdatedAt = s.manager.now()
	if err := s.manager.store.Save(ctx, s.sessionID, data); err != nil {
		return withDetails(ErrSessionStore, err, map[string]any{
			"operation":  "save",
			"session_id": s.sessionID,
		})
	}
	return nil
}

// ProcessAuthSession persists the tokens carried by a provider response and
// refetches the user profile when the response signals an authenticated
// session. accessToken and sessionToken are the values the caller sent with
// the request; they are re-affirmed when the response does not rotate them.
func (s *ScopedSession) ProcessAuthSession(ctx context.Context, resp AuthResponse, accessToken, sessionToken string) error {
	switch res := resp.(type) {
	case *SuccessResponse:
		if res == nil {
			return nil
		}
		return s.processSuccess(ctx, res, accessToken, sessionToken)
	case *FailureResponse:
		if res == nil {
			return nil
		}
		return s.processFailure(ctx, res)
	default:
		return nil
	}
}

func (s *ScopedSession) processSuccess(ctx context.Context, res *SuccessResponse, accessToken, sessionToken string) error {
	data, err := s.load(ctx)
	if err != nil {
		return err
	}
	existed := data != nil
	if data == nil {
		data = &SessionData{}
	}

	changed := false

	if token := firstNonEmpty(res.Meta.SessionToken, sessionToken); token != "" {
		s.headers.SetHeader(HeaderSessionToken, token)
		data.SessionToken = token
		changed = true
	}

	if token := firstNonEmpty(res.Meta.AccessToken, accessToken); token != "" {
		s.headers.SetHeader(HeaderAccessToken, token)
		if token != data.AccessToken {
			data.AccessTokenExpiresAt = nil
			if exp, ok := AccessTokenExpiry(token); ok {
				data.AccessTokenExpiresAt = &exp
			}
		}
		data.AccessToken = token
		accessToken = token
		changed = true
	}

	if res.Meta.RefreshToken != "" {
		data.RefreshToken = res.Meta.RefreshToken
		changed = true
	}

	if changed || existed {
		if err := s.save(ctx, data); err != nil {
			return err
		}
	}

	if (accessToken != "" && res.Data.User != nil) || res.Meta.IsAuthenticated {
		if _, err := s.FetchUserData(ctx, res, accessToken); err != nil {
			return err
		}
	}

	return nil
}

func (s *ScopedSession) processFailure(ctx context.Context, res *FailureResponse) error {
	if res.Status == http.StatusGone {
		s.manager.logger.Info("provider session invalidated, clearing tokens", "session_id", s.sessionID)
		return s.Clear(ctx)
	}

	if res.Meta.SessionToken == "" {
		return nil
	}

	data, err := s.load(ctx)
	if err != nil {
		return err
	}
	if data == nil {
		data = &SessionData{}
	}
	s.headers.SetHeader(HeaderSessionToken, res.Meta.SessionToken)
	data.SessionToken = res.Meta.SessionToken
	return s.save(ctx, data)
}

// Headers rebuilds provider request headers from the stored session.
func (s *ScopedSession) Headers(ctx context.Context) (http.Header, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return s.manager.CreateHeaders("", ""), nil
	}
	return s.manager.CreateHeaders(data.SessionToken, data.AccessToken), nil
}

// SessionToken returns the stored session token, "" when none.
func (s *ScopedSession) SessionToken(ctx context.Context) (string, error) {
	data, err := s.load(ctx)
	if err != nil || data == nil {
		return "", err
	}
	return data.SessionToken, nil
}

// AccessToken returns the stored access token, "" when none.
func (s *ScopedSession) AccessToken(ctx context.Context) (string, error) {
	data, err := s.load(ctx)
	if err != nil || data == nil {
		return "", err
	}
	return data.AccessToken, nil
}

// RefreshToken returns the stored refresh token, "" when none.
func (s *ScopedSession) RefreshToken(ctx context.Context) (string, error) {
	data, err := s.load(ctx)
	if err != nil || data == nil {
		return "", err
	}
	return data.RefreshToken, nil
}

// User returns the last validated user, nil when none.
func (s *ScopedSession) User(ctx context.Context) (*User, error) {
	data, err := s.load(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	return data.User, nil
}

// RequireAccessToken is AccessToken for callers that cannot proceed without
// a session. It returns ErrUnauthorized instead of an empty token.
func (s *ScopedSession) RequireAccessToken(ctx context.Context) (string, error) {
	data, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if data == nil || data.AccessToken == "" {
		return "", withDetails(ErrUnauthorized, nil, map[string]any{
			"session_id": s.sessionID,
		})
	}
	if data.AccessTokenExpiresAt != nil && !s.manager.now().Before(*data.AccessTokenExpiresAt) {
		return "", withDetails(ErrAccessTokenExpired, nil, map[string]any{
			"session_id": s.sessionID,
			"expired_at": data.AccessTokenExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	return data.AccessToken, nil
}

// Clear removes every token and the cached user.
func (s *ScopedSession) Clear(ctx context.Context) error {
	if err := s.manager.store.Delete(ctx, s.sessionID); err != nil {
		return withDetails(ErrSessionStore, err, map[string]any{
			"operation":  "delete",
			"session_id": s.sessionID,
		})
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
