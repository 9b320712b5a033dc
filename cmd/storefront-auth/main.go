package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-headless-auth"
	"github.com/goliatone/go-headless-auth/activitymap"
	"github.com/goliatone/go-headless-auth/metrics"
	"github.com/goliatone/go-headless-auth/middleware/fibersession"
	"github.com/goliatone/go-headless-auth/provider/allauth"
	"github.com/goliatone/go-headless-auth/repository"
	"github.com/goliatone/go-headless-auth/store/redisstore"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config     auth.EnvConfig
	client     *allauth.Client
	manager    *auth.SessionManager
	trackers   *auth.TrackerRegistry
	routes     auth.FlowRoutes
	metrics    *metrics.Metrics
	logger     auth.Logger
	closers    []func() error
	background []func(context.Context)
}

func main() {
	cfg, err := auth.LoadEnvConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, run := range app.background {
		go run(ctx)
	}

	srv := app.server()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.ShutdownWithContext(shutdownCtx)
	}()

	log.Printf("storefront auth listening on %s", cfg.ListenAddr)
	if err := srv.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func newApp(cfg auth.EnvConfig) (*App, error) {
	app := &App{
		config:  cfg,
		routes:  auth.DefaultFlowRoutes(),
		metrics: metrics.New(nil),
		logger:  stdLogger{},
	}

	store, err := app.sessionStore()
	if err != nil {
		return nil, err
	}

	app.client = allauth.NewFromConfig(cfg, cfg.HTTPTimeout)
	app.manager = auth.NewSessionManager(store,
		auth.WithUserFetcher(app.client),
		auth.WithManagerConfig(cfg),
		auth.WithManagerLogger(app.logger),
	)

	notifier := auth.NewLocalizedNotifier(cfg.Locale, func(ctx context.Context, n auth.Notice) {
		app.logger.Info("notice", "key", n.Key, "level", n.Level, "message", n.Message)
	})

	dispatcher := auth.NewDispatcher(auth.WithDispatcherLogger(app.logger))
	dispatcher.Subscribe(app.metrics)
	dispatcher.Subscribe(activitymap.Sink(func(ctx context.Context, rec activitymap.Normalized) error {
		app.logger.Info("auth activity", "verb", rec.Verb, "actor", rec.ActorID, "details", print.MaybePrettyJSON(rec.Metadata))
		return nil
	}))

	app.trackers = auth.NewTrackerRegistry(
		auth.WithTrackerDispatcher(dispatcher),
		auth.WithTrackerClassifier(auth.NewClassifier(
			auth.WithNotifier(notifier),
			auth.WithClassifierLogger(app.logger),
		)),
	)

	return app, nil
}

func (a *App) sessionStore() (auth.SessionStore, error) {
	switch {
	case a.config.RedisURL != "":
		store, err := redisstore.NewFromURL(a.config.RedisURL, redisstore.WithTTL(a.config.SessionTTL))
		if err != nil {
			return nil, err
		}
		if err := store.Ping(context.Background()); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil

	case a.config.DatabaseDSN != "":
		sqldb, err := sql.Open(sqliteshim.ShimName, a.config.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		a.closers = append(a.closers, db.Close)

		repo := repository.NewSessionRepository(db)
		if err := repo.CreateSchema(context.Background()); err != nil {
			return nil, err
		}
		a.background = append(a.background, a.pruneLoop(repo))
		return repo, nil

	default:
		return auth.NewMemorySessionStore(), nil
	}
}

func (a *App) pruneLoop(repo *repository.SessionRepository) func(context.Context) {
	return func(ctx context.Context) {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := repo.PruneIdle(ctx, time.Now().Add(-a.config.SessionTTL))
				if err != nil {
					a.logger.Error("prune sessions", "error", err)
					continue
				}
				if removed > 0 {
					a.logger.Info("pruned idle sessions", "count", removed)
				}
			}
		}
	}
}

func (a *App) Close() {
	for _, closer := range a.closers {
		_ = closer()
	}
}

func (a *App) server() *fiber.App {
	srv := fiber.New(fiber.Config{
		ErrorHandler: a.errorHandler,
	})

	srv.Use(fibersession.New(fibersession.Config{
		Manager:    a.manager,
		Trackers:   a.trackers,
		CookieName: a.config.SessionCookieName,
		CookieTTL:  a.config.SessionTTL,
		Logger:     a.logger,
	}))

	api := srv.Group("/auth")
	api.Get("/session", a.handleSession)
	api.Post("/login", a.handleLogin)
	api.Post("/logout", a.handleLogout)
	api.Post("/reauthenticate", a.handleReauthenticate)
	api.Post("/2fa/authenticate", a.handleMFA)
	srv.Get("/me", a.handleMe)

	return srv
}

type providerCall func(ctx context.Context, headers http.Header) (auth.AuthResponse, error)

// relay forwards one provider call with the stored tokens and records the
// outcome on the session.
func (a *App) relay(c *fiber.Ctx, operation string, call providerCall) error {
	scoped, ok := fibersession.Scoped(c)
	if !ok {
		return fiber.ErrInternalServerError
	}

	headers, err := scoped.Headers(c.UserContext())
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := call(c.UserContext(), headers)
	if err != nil {
		a.metrics.ObserveProvider(operation, 0, start)
		return err
	}
	a.metrics.ObserveProvider(operation, resp.StatusCode(), start)

	event, err := fibersession.Process(c, resp)
	if err != nil {
		return err
	}

	next, err := a.routes.PathForPendingFlow(resp)
	if err != nil {
		return err
	}

	return c.Status(resp.StatusCode()).JSON(fiber.Map{
		"event":    event.String(),
		"next":     next,
		"response": resp,
	})
}

func (a *App) handleSession(c *fiber.Ctx) error {
	return a.relay(c, "session", a.client.Session)
}

func (a *App) handleLogin(c *fiber.Ctx) error {
	var payload allauth.LoginPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid login payload")
	}
	return a.relay(c, "login", func(ctx context.Context, headers http.Header) (auth.AuthResponse, error) {
		return a.client.Login(ctx, headers, payload)
	})
}

func (a *App) handleLogout(c *fiber.Ctx) error {
	return a.relay(c, "logout", a.client.Logout)
}

func (a *App) handleReauthenticate(c *fiber.Ctx) error {
	var payload struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid reauthenticate payload")
	}
	return a.relay(c, "reauthenticate", func(ctx context.Context, headers http.Header) (auth.AuthResponse, error) {
		return a.client.Reauthenticate(ctx, headers, payload.Password)
	})
}

func (a *App) handleMFA(c *fiber.Ctx) error {
	var payload struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid code payload")
	}
	return a.relay(c, "mfa_authenticate", func(ctx context.Context, headers http.Header) (auth.AuthResponse, error) {
		return a.client.MFAAuthenticate(ctx, headers, payload.Code)
	})
}

func (a *App) handleMe(c *fiber.Ctx) error {
	scoped, ok := fibersession.Scoped(c)
	if !ok {
		return fiber.ErrInternalServerError
	}
	if _, err := scoped.RequireAccessToken(c.UserContext()); err != nil {
		return err
	}
	user, err := scoped.User(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}

func (a *App) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.logger.Error("request failed",
		"path", c.Path(),
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}
	return c.Status(code).JSON(fiber.Map{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

type stdLogger struct{}

func (stdLogger) Debug(msg string, args ...any) { log.Println(append([]any{"[DBG]", msg}, args...)...) }
func (stdLogger) Info(msg string, args ...any)  { log.Println(append([]any{"[INF]", msg}, args...)...) }
func (stdLogger) Warn(msg string, args ...any)  { log.Println(append([]any{"[WRN]", msg}, args...)...) }
func (stdLogger) Error(msg string, args ...any) { log.Println(append([]any{"[ERR]", msg}, args...)...) }
