package fibersession

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	auth "github.com/goliatone/go-headless-auth"
	"github.com/google/uuid"
)

const (
	defaultCookieName = "storefront_sid"
	defaultCookieTTL  = 30 * 24 * time.Hour
)

// Config defines the config for the session middleware.
type Config struct {
	// Filter defines a function to skip middleware.
	Filter func(*fiber.Ctx) bool

	// Manager is required.
	Manager *auth.SessionManager

	// Trackers, when set, classifies responses passed to Process.
	Trackers *auth.TrackerRegistry

	CookieName string
	CookieTTL  time.Duration
	Secure     bool

	// ContextKey is the Locals key for the scoped session.
	ContextKey string

	NewID  func() string
	Logger auth.Logger
}

func configDefault(cfg Config) Config {
	if cfg.Manager == nil {
		panic("fibersession: Manager is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = defaultCookieTTL
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultSessionLocalsKey
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Logger == nil {
		cfg.Logger = auth.NopLogger{}
	}
	return cfg
}

const configLocalsKey = "fibersession.config"

// New resolves or mints the platform session id cookie and scopes a
// ScopedSession into Locals and the user context.
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		// fiber reuses request buffers, the id outlives the handler
		sid := utils.CopyString(c.Cookies(cfg.CookieName))
		if sid == "" {
			sid = cfg.NewID()
			c.Cookie(&fiber.Cookie{
				Name:     cfg.CookieName,
				Value:    sid,
				Expires:  time.Now().Add(cfg.CookieTTL),
				HTTPOnly: true,
				Secure:   cfg.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
			cfg.Logger.Debug("minted platform session", "session_id", sid)
		}

		scoped := cfg.Manager.Scope(sid, HeaderWriter(c))
		c.Locals(cfg.ContextKey, scoped)
		c.Locals(configLocalsKey, &cfg)
		c.SetUserContext(auth.WithScopedSession(c.UserContext(), scoped))

		return c.Next()
	}
}

// HeaderWriter writes response headers on a fiber context.
func HeaderWriter(c *fiber.Ctx) auth.HeaderWriter {
	return auth.HeaderWriterFunc(func(key, value string) {
		c.Set(key, value)
	})
}

// Scoped returns the session stored by New.
func Scoped(c *fiber.Ctx, key ...string) (*auth.ScopedSession, bool) {
	k := auth.DefaultSessionLocalsKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	s, ok := c.Locals(k).(*auth.ScopedSession)
	return s, ok && s != nil
}

// RequestTokens returns the session and access tokens the client sent on
// this request.
func RequestTokens(c *fiber.Ctx) (sessionToken, accessToken string) {
	sessionToken = utils.CopyString(c.Get(auth.HeaderSessionToken))
	authz := c.Get(auth.HeaderAuthorization)
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		accessToken = utils.CopyString(strings.TrimSpace(authz[7:]))
	}
	return sessionToken, accessToken
}

// Process persists resp on the request's session and, when trackers are
// configured, returns the resulting change event.
func Process(c *fiber.Ctx, resp auth.AuthResponse) (auth.AuthChangeEvent, error) {
	cfg, _ := c.Locals(configLocalsKey).(*Config)
	key := ""
	if cfg != nil {
		key = cfg.ContextKey
	}

	scoped, ok := Scoped(c, key)
	if !ok {
		return auth.EventNone, fiber.NewError(fiber.StatusInternalServerError, "session middleware not installed")
	}

	sessionToken, accessToken := RequestTokens(c)
	if err := scoped.ProcessAuthSession(c.UserContext(), resp, accessToken, sessionToken); err != nil {
		return auth.EventNone, err
	}

	if cfg == nil || cfg.Trackers == nil {
		return auth.EventNone, nil
	}
	return cfg.Trackers.Get(scoped.ID()).Observe(c.UserContext(), resp), nil
}
