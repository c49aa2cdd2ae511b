package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/healthreport/internal/config"
	"github.com/ehr/healthreport/internal/domain/healthrecord"
	"github.com/ehr/healthreport/internal/domain/healthreport"
	"github.com/ehr/healthreport/internal/intake"
	"github.com/ehr/healthreport/internal/platform/auth"
	"github.com/ehr/healthreport/internal/platform/cache"
	"github.com/ehr/healthreport/internal/platform/db"
	"github.com/ehr/healthreport/internal/platform/middleware"
)

const (
	shutdownTimeout          = 10 * time.Second
	rateLimitCleanupInterval = time.Minute
)

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// store is the opened record backend. Pool is set for the postgres backend
// only.
type store struct {
	Repo  healthrecord.Repository
	Pool  *pgxpool.Pool
	close []func()
}

func (s *store) Close() {
	for i := len(s.close) - 1; i >= 0; i-- {
		s.close[i]()
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	s := &store{}
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		s.Pool = pool
		s.Repo = healthrecord.NewRepoPG(pool)
		s.close = append(s.close, pool.Close)
		logger.Info().Msg("connected to database")
	case config.BackendREST:
		s.Repo = healthrecord.NewRepoREST(healthrecord.NewRESTClient(cfg.StoreURL, cfg.StoreAPIKey))
		logger.Info().Str("url", cfg.StoreURL).Msg("using REST record store")
	case config.BackendMemory:
		s.Repo = healthrecord.NewMemoryRepo()
		logger.Warn().Msg("using in-memory record store; records are lost on restart")
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.close = append(s.close, func() { _ = client.Close() })
		s.Repo = healthrecord.NewCachedRepo(s.Repo, client, cfg.RecordCacheTTL, logger)
		logger.Info().Dur("ttl", cfg.RecordCacheTTL).Msg("record cache enabled")
	}
	return s, nil
}

func authMiddleware(cfg *config.Config, logger zerolog.Logger) echo.MiddlewareFunc {
	if cfg.AuthJWTSecret == "" && cfg.AuthIssuer == "" && cfg.AuthJWKSURL == "" {
		return auth.DevAuthMiddleware()
	}
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
		Logger:   logger,
	}
	if cfg.AuthJWTSecret != "" {
		jc.SigningKey = []byte(cfg.AuthJWTSecret)
	}
	return auth.JWTMiddleware(jc)
}

// newServer wires the HTTP surface over an opened store. pool may be nil.
// Background work started here stops with ctx.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, repo healthrecord.Repository, pool *pgxpool.Pool) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	extractor, err := middleware.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	e.IPExtractor = extractor

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	go rateLimiter.StartCleanup(ctx, rateLimitCleanupInterval)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.CORS(middleware.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(rateLimiter.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	records := healthrecord.NewService(repo)
	reports := healthreport.NewService(records, healthreport.NewRenderer())

	intake.NewPage("/api/v1", cfg.IntakePublicToken).RegisterRoutes(e.Group(""))

	apiV1 := e.Group("/api/v1", middleware.SecurityHeaders(), authMiddleware(cfg, logger))
	healthrecord.NewHandler(records).RegisterRoutes(apiV1)
	healthreport.NewHandler(reports).RegisterRoutes(apiV1)

	return e, nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open record store")
		return err
	}
	defer s.Close()

	e, err := newServer(ctx, cfg, logger, s.Repo, s.Pool)
	if err != nil {
		logger.Error().Err(err).Msg("invalid server configuration")
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
