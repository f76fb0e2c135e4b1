// Package app wires the herald server runtime: config, logging, storage,
// the hashing pool and the HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"herald/cmd/identity"
	authapi "herald/cmd/internal/auth/api"
	"herald/cmd/internal/auth/credentials"
	"herald/cmd/internal/auth/session"
	"herald/cmd/internal/metrics"
	subapi "herald/cmd/internal/subscriptions/api"
	"herald/cmd/security/msgauth"
	"herald/cmd/security/offload"
	"herald/cmd/security/password"
	"herald/cmd/security/secret"
	"herald/cmd/subscriptions"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns the HTTP server and the resources behind it.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	store     identity.CredentialStore
	subs      subscriptions.Store
	validator *credentials.Validator
	metrics   *metrics.Metrics
	auth      *authapi.Handler
	subAPI    *subapi.Handler
}

// New constructs a fully wired App. flashKey signs the messages carried in
// redirect URLs.
func New(ctx context.Context, cfg Config, log Logger, flashKey secret.Secret[[]byte]) (*App, error) {
	if log == nil {
		log = NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	}

	m := metrics.New()

	st, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:       cfg,
		log:       log,
		dbPool:    st.pool,
		dbEnabled: st.pool != nil,
		store:     st.creds,
		subs:      st.subs,
		metrics:   m,
	}

	if err := a.wireAuth(flashKey); err != nil {
		a.close()
		return nil, err
	}
	if err := a.wireSubscriptions(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) wireAuth(flashKey secret.Secret[[]byte]) error {
	pwCfg, err := password.FromEnv()
	if err != nil {
		return err
	}

	pool, err := offload.NewPool(a.cfg.HashWorkers, a.metrics.Registry)
	if err != nil {
		return err
	}

	a.validator, err = credentials.New(a.store, pwCfg, pool, credentials.WithLogger(a.log))
	if err != nil {
		return err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	sessions, err := session.NewManager(sessCfg)
	if err != nil {
		return err
	}
	if sessions.Ephemeral() {
		a.log.Warn("session.key.ephemeral",
			"hint", "set HERALD_PASETO_V4_SECRET_KEY_HEX; sessions will not survive a restart")
	}

	flash, err := msgauth.New(flashKey)
	if err != nil {
		return err
	}

	authCfg := authapi.LoadConfigFromEnv()
	authCfg.PasswordMinLength = pwCfg.Policy.MinLength
	authCfg.PasswordMaxLength = pwCfg.Policy.MaxLength

	a.auth, err = authapi.NewHandler(a.log, authCfg, authapi.Deps{
		Validator: a.validator,
		Users:     a.store,
		Sessions:  sessions,
		Flash:     flash,
		Metrics:   a.metrics,
	})
	return err
}

// wireSubscriptions must run after wireAuth: the publish route sits behind
// the admin session.
func (a *App) wireSubscriptions() error {
	pub, err := subscriptions.NewPublisher(a.subs, subscriptions.LogSender{Log: a.log}, a.log)
	if err != nil {
		return err
	}
	a.subAPI, err = subapi.NewHandler(a.log, subapi.Config{
		MaxBodyBytes: int64(a.cfg.SubscriptionsMaxBodyBytes),
	}, subapi.Deps{
		Store:       a.subs,
		Publisher:   pub,
		RequireUser: a.auth.RequireUser,
		UserID: func(r *http.Request) string {
			id, _ := authapi.UserID(r.Context())
			return id
		},
		Metrics: a.metrics,
	})
	return err
}

// Handler returns the full middleware-wrapped route tree.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, routes{
		log:       a.log,
		cfg:       a.cfg,
		dbPool:    a.dbPool,
		dbEnabled: a.dbEnabled,
		metrics:   a.metrics,
		auth:      a.auth,
		subs:      a.subAPI,
	})

	var h http.Handler = mux
	h = WithSecurityHeaders(h)
	h = WithMetrics(h, a.metrics)
	h = WithRequestLogging(h, a.log)
	return h
}

// Prepare computes the dummy hash and creates the bootstrap admin. It runs
// before the listener opens so the first login is not slower than the rest.
func (a *App) Prepare(ctx context.Context) error {
	if err := a.validator.Warm(ctx); err != nil {
		return err
	}
	return bootstrapAdmin(ctx, a.log, a.store, a.validator, a.cfg.AdminUsername, a.cfg.AdminPassword)
}

// Run starts the HTTP server and blocks until ctx is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := a.Prepare(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled, "hash_workers", a.cfg.HashWorkers)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func (a *App) close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type stores struct {
	creds identity.CredentialStore
	subs  subscriptions.Store
	pool  *pgxpool.Pool
}

// newStores picks Postgres when HERALD_DATABASE_URL is set and the in-memory
// stores otherwise. The pool is nil in memory mode.
func newStores(ctx context.Context, cfg Config, log Logger) (stores, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("db.disabled.inmemory_store", "hint", "accounts and subscriptions are lost on restart")
		return stores{creds: identity.NewMemoryStore(), subs: subscriptions.NewMemoryStore()}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return stores{}, err
	}

	creds, err := identity.NewPostgresStore(pool)
	if err == nil {
		err = creds.EnsureSchema(ctx)
	}
	if err != nil {
		pool.Close()
		return stores{}, err
	}

	subs, err := subscriptions.NewPostgresStore(pool, "")
	if err == nil {
		err = subs.EnsureSchema(ctx)
	}
	if err != nil {
		pool.Close()
		return stores{}, err
	}

	log.Info("db.enabled.postgres_store")
	return stores{creds: creds, subs: subs, pool: pool}, nil
}
