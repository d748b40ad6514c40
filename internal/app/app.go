// Package app wires the URL shortener together and runs its HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlink/internal/auth"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/ratelimit"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/migrations"
	"github.com/vadimbarashkov/shortlink/pkg/redis"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	pgdb "github.com/vadimbarashkov/shortlink/pkg/postgres"
)

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel:        slog.LevelDebug,
		Concise:         true,
		QuietDownRoutes: []string{"/api/v1/ping", "/metrics"},
	}

	if env == config.EnvProd || env == config.EnvStage {
		opts.LogLevel = slog.LevelInfo
		opts.JSON = true
		opts.Concise = false
	}

	return httplog.NewLogger("url-shortener", opts)
}

func newRateLimitStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, func() error, error) {
	const op = "app.newRateLimitStore"

	if cfg.RateLimiter.Backend != config.RateLimiterRedis {
		return ratelimit.NewMemoryStore(), func() error { return nil }, nil
	}

	client, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return ratelimit.NewRedisStore(client, cfg.RateLimiter.KeyPrefix), client.Close, nil
}

// newRouter assembles the repositories, the allocator, the limiter and the
// use cases behind the HTTP router.
func newRouter(cfg *config.Config, db *sqlx.DB, store ratelimit.Store, logger *httplog.Logger) (http.Handler, error) {
	const op = "app.newRouter"

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create token manager: %w", op, err)
	}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	urlRepo := postgres.NewURLRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	userRepo := postgres.NewUserRepository(db)

	allocator := shortcode.New(urlRepo, cfg.ShortCodeLength, shortcode.WithMetrics(m))
	limiter := ratelimit.New(store, cfg.RateLimiter.Max, cfg.RateLimiter.Window, ratelimit.WithMetrics(m))

	urlUseCase := usecase.NewURLUseCase(allocator, urlRepo, visitRepo, logger.Logger, m)
	userUseCase := usecase.NewUserUseCase(userRepo, tokens)

	return delivery.NewRouter(logger, delivery.Deps{
		URLUseCase:     urlUseCase,
		UserUseCase:    userUseCase,
		Limiter:        limiter,
		Metrics:        metrics.Handler(reg),
		BaseURL:        cfg.BaseURL,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SecureCookies:  cfg.Env == config.EnvProd,
	}), nil
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	db, err := pgdb.New(
		ctx,
		cfg.Postgres.DSN(),
		pgdb.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pgdb.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pgdb.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pgdb.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pgdb.RunMigrations(cfg.Postgres.DSN(), migrations.FS); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	store, closeStore, err := newRateLimitStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to create rate limit store: %w", op, err)
	}
	defer closeStore()

	router, err := newRouter(cfg, db, store, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("env", cfg.Env),
			slog.String("rate_limiter", cfg.RateLimiter.Backend),
		)

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
