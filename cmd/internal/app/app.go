// Package app wires the server runtime: config, logging, database, metrics,
// HTTP routes, rate limiting, and the notification gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"muse/cmd/identity"
	authapi "muse/cmd/internal/auth/api"
	"muse/cmd/internal/auth/session"
	"muse/cmd/internal/auth/token"
	"muse/cmd/internal/catalog"
	"muse/cmd/internal/notify"
	"muse/cmd/internal/objstore"
	"muse/cmd/internal/ratelimit"
	"muse/cmd/security/password"
)

// App owns the wired server and its closeable resources.
type App struct {
	cfg Config
	log Logger

	pool    *pgxpool.Pool
	metrics *Metrics
	cache   *ratelimit.Cache
	hub     *notify.Hub

	handler http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(); err != nil {
		return nil, err
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	codec, err := token.New(sessCfg.Secret)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("MUSE_DATABASE_URL is required")
	}
	if cfg.MigrateOnStart {
		if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()

	// Identity + sessions.
	directory, err := identity.NewDirectory(identity.NewPostgresStore(pool), password.DefaultParams(), log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	adapter := directoryAdapter{dir: directory}
	sessions := session.NewService(sessCfg, codec, session.NewPostgresStore(pool), adapter, adapter, log)

	authHandler := authapi.NewHandler(log, sessions, directory)
	authHandler.OnAuthFailure = metrics.AuthFailure

	// Notifications.
	hub := notify.NewHub(log)
	gateway := notify.NewGateway(log, hub, notify.GatewayConfig{AllowedOrigins: cfg.WSAllowedOrigins}, func(r *http.Request) (string, bool) {
		p, ok := authapi.PrincipalFrom(r.Context())
		return p.Username, ok
	})

	// Catalog.
	catalogStore := catalog.NewPostgresStore(pool)
	catalogSvc := catalog.NewService(catalogStore, hub, log)

	var blobs catalog.BlobStore
	if cfg.S3Bucket != "" {
		blobs, err = objstore.New(ctx, objstore.Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
	} else {
		log.Warn("objstore.disabled", "reason", "MUSE_S3_BUCKET not set")
		blobs = unavailableBlobs{}
	}
	covers := catalog.NewCoverService(catalogStore, blobs, hub, log)
	syncer := catalog.NewSyncer(cfg.RegionalURL, nil, catalogStore, hub, log)

	catalogAPI := catalog.NewAPI(log, catalogSvc, covers, syncer)

	// Admission gate.
	cache := ratelimit.NewCache(cfg.RateIdleTTL, cfg.RateSweepEvery)
	gate := ratelimit.NewGate(ratelimit.GateConfig{
		UserPolicy:     perMinute(cfg.UserRatePerMin),
		IPPolicy:       perMinute(cfg.IPRatePerMin),
		ExemptPrefixes: gateExemptPrefixes,
	}, cache, authapi.GatePrincipal, log)
	gate.OnDenied = func(key string) {
		class, _, _ := strings.Cut(key, ":")
		metrics.RateLimitDenied(class)
	}

	mux := http.NewServeMux()
	registerHTTP(mux, log, pool, metrics, authHandler, catalogAPI, gateway)

	// Soft principal resolution runs before the gate so authenticated
	// traffic is keyed per user rather than per IP.
	var handler http.Handler = gate.Middleware(mux)
	handler = authapi.SoftAuth(codec, log)(handler)
	handler = WithMetrics(handler, metrics)
	handler = WithRequestLogging(handler, log)

	return &App{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		metrics: metrics,
		cache:   cache,
		hub:     hub,
		handler: handler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

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
		a.close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	a.close()
	if err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func (a *App) close() {
	a.hub.Close()
	a.cache.Close()
	a.pool.Close()
}

// perMinute builds an interval-refill policy of n tokens per minute.
func perMinute(n int) ratelimit.Policy {
	return ratelimit.Policy{
		Capacity:       int64(n),
		RefillTokens:   int64(n),
		RefillInterval: time.Minute,
	}
}

// directoryAdapter maps identity errors onto the session layer's sentinels.
type directoryAdapter struct {
	dir *identity.Directory
}

func (a directoryAdapter) VerifyCredentials(ctx context.Context, username, pw string) error {
	return adaptIdentityErr(a.dir.VerifyCredentials(ctx, username, pw))
}

func (a directoryAdapter) ResolveSubject(ctx context.Context, username string) error {
	return adaptIdentityErr(a.dir.ResolveSubject(ctx, username))
}

func adaptIdentityErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return session.ErrAuthentication
	}
	return err
}

// unavailableBlobs rejects cover operations when object storage is not
// configured, instead of taking the whole server down at startup.
type unavailableBlobs struct{}

var errBlobsUnavailable = fmt.Errorf("%w: object storage is not configured", catalog.ErrInvalidInput)

func (unavailableBlobs) Put(context.Context, string, string, io.Reader, int64) error {
	return errBlobsUnavailable
}

func (unavailableBlobs) Delete(context.Context, string) error { return errBlobsUnavailable }

func (unavailableBlobs) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", errBlobsUnavailable
}
