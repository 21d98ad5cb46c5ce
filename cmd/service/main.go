package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/movie-service/internal/cache"
	"github.com/kjstillabower/movie-service/internal/config"
	httphandler "github.com/kjstillabower/movie-service/internal/http"
	"github.com/kjstillabower/movie-service/internal/lifecycle"
	"github.com/kjstillabower/movie-service/internal/observability"
	"github.com/kjstillabower/movie-service/internal/repository"
	"github.com/kjstillabower/movie-service/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var repo repository.Repository
	var db *sql.DB
	switch cfg.RepositoryBackend {
	case config.BackendPostgres:
		db, err = repository.OpenPostgres(context.Background(), repository.PostgresConfig{
			DSN:          cfg.DatabaseDSN,
			MaxOpenConns: cfg.DatabaseMaxOpenConns,
			MaxIdleConns: cfg.DatabaseMaxIdleConns,
			MaxIdleTime:  cfg.DatabaseMaxIdleTime,
			PingTimeout:  cfg.DatabasePingTimeout,
		})
		if err != nil {
			logger.Fatal("postgres", zap.Error(err))
		}
		repo = repository.NewPostgresRepository(db)
		logger.Info("repository backend: postgres", zap.Int("max_open_conns", cfg.DatabaseMaxOpenConns))
	default:
		repo = repository.NewInMemoryRepository()
		logger.Info("repository backend: in_memory")
	}

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case config.BackendMemcached:
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		healthConfig.CachePing = mc.Ping
		repo = cache.NewCachedRepository(repo, mc, cfg.CacheTTL)
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs), zap.Duration("ttl", cfg.CacheTTL))
	case config.BackendInMemory:
		repo = cache.NewCachedRepository(repo, cache.NewInMemoryCache(), cfg.CacheTTL)
		logger.Info("cache backend: in_memory", zap.Duration("ttl", cfg.CacheTTL))
	default:
		logger.Info("cache backend: none")
	}
	if p, ok := repo.(repository.Pinger); ok {
		healthConfig.RepositoryPing = p.Ping
	}

	movieService := service.NewMovieService(repo)
	handler := httphandler.NewHandler(movieService, healthConfig, logger, cfg.TitleMaxLength)

	limiter := httphandler.NewClientRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if limiter != nil {
		logger.Info("rate limiting enabled", zap.Int("rps", cfg.RateLimitRPS), zap.Int("burst", cfg.RateLimitBurst))
	}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		lifecycle.MarkStarted(time.Now())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("postgres close", zap.Error(err))
		}
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
