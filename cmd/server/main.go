package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/FreeRikato/classroom-api/internal/api"
	"github.com/FreeRikato/classroom-api/internal/api/handler"
	"github.com/FreeRikato/classroom-api/internal/api/metrics"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
	"github.com/FreeRikato/classroom-api/internal/core/service"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/db/memory"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/db/mongo"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/db/postgres"
	redisstore "github.com/FreeRikato/classroom-api/internal/infrastructure/db/redis"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/ratelimit"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/sanitize"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/weather/openmeteo"
	"github.com/FreeRikato/classroom-api/internal/pkg/config"
	"github.com/FreeRikato/classroom-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       Classroom API
// @version                     1.0
// @description                 User accounts with JWT auth, a blog with comments, and a cached weather proxy.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "classroom-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()

	checks := map[string]handler.Checker{cfg.StoreDriver: store.Ping}

	var idempotency ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		idempotency = redisstore.NewIdempotencyStore(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency keys enabled")
	} else {
		log.Info().Msg("REDIS_ADDR not set, idempotency keys disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	weatherClient := openmeteo.New(openmeteo.Config{
		GeocodingURL: cfg.Weather.GeocodingURL,
		ForecastURL:  cfg.Weather.ForecastURL,
		Timeout:      cfg.Weather.Timeout,
		RPS:          cfg.Weather.UpstreamRPS,
		Burst:        cfg.Weather.UpstreamBurst,
	}, log, openmeteo.WithRecorder(m))

	proxies, err := cfg.RateLimit.ProxyRanges()
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Logger: log,
		Auth:   service.NewAuthService(store.Users(), store, cfg.JWTSecret, cfg.TokenTTL),
		Posts:  service.NewPostService(store, sanitize.New(), log),
		Weather: service.NewWeatherService(weatherClient, log,
			service.WithCacheTTL(cfg.Weather.CacheTTL),
			service.WithForecastDays(cfg.Weather.ForecastDays),
			service.WithCacheRecorder(m)),
		Limiter:        ratelimit.NewSlidingWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		TrustedProxies: proxies,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		Registry:       reg,
		Metrics:        m,
		Checks:         checks,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("classroom-api started")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(cfg.Postgres.URL); err != nil {
				return nil, err
			}
			log.Info().Msg("postgres migrations applied")
		}
		return postgres.Connect(ctx, postgres.Config{
			URL:          cfg.Postgres.URL,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			Timeout:      cfg.Postgres.Timeout,
		})

	case config.DriverMongo:
		store, err := mongo.Connect(ctx, mongo.Config{
			URI:          cfg.Mongo.URI,
			Database:     cfg.Mongo.Database,
			Timeout:      cfg.Mongo.Timeout,
			Transactions: cfg.Mongo.Transactions,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		return store, nil

	default:
		log.Warn().Msg("using the in-memory store; data is lost on restart")
		return memory.New(), nil
	}
}
