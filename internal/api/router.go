package api

import (
	"net"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/FreeRikato/classroom-api/docs"
	"github.com/FreeRikato/classroom-api/internal/api/handler"
	"github.com/FreeRikato/classroom-api/internal/api/metrics"
	"github.com/FreeRikato/classroom-api/internal/api/middleware"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/ratelimit"
)

// Deps carries everything the HTTP layer needs. Idempotency may be nil, in
// which case Idempotency-Key headers are ignored.
type Deps struct {
	Logger         zerolog.Logger
	Auth           ports.AuthService
	Posts          ports.PostService
	Weather        ports.WeatherService
	Limiter        *ratelimit.SlidingWindow
	TrustedProxies []*net.IPNet
	Idempotency    ports.IdempotencyStore
	IdempotencyTTL time.Duration
	Registry       *prometheus.Registry
	Metrics        *metrics.Metrics
	Checks         map[string]handler.Checker
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	e.IPExtractor = clientIPExtractor(d.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "classroom",
		Subsystem:  "http",
		Registerer: d.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.RateLimit(d.Limiter, middleware.RateLimitConfig{
		Skipper:  middleware.ExemptPaths,
		OnReject: d.Metrics.RateLimited,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Metrics)
	userHandler := handler.NewUserHandler(d.Auth)
	postHandler := handler.NewPostHandler(d.Posts, d.Metrics)
	weatherHandler := handler.NewWeatherHandler(d.Weather)
	healthHandler := handler.NewHealthHandler(d.Checks)

	requireAuth := middleware.Auth(d.Auth)
	idempotent := middleware.Idempotency(middleware.IdempotencyConfig{
		Store:    d.Idempotency,
		TTL:      d.IdempotencyTTL,
		Logger:   d.Logger,
		OnResult: d.Metrics.Idempotency,
	})

	// --- Auth routes ---
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)
	e.POST("/token", authHandler.Token)

	e.GET("/users/me", userHandler.Me, requireAuth)
	e.PUT("/users/me", userHandler.UpdateMe, requireAuth)

	// --- Posts & comments ---
	e.GET("/posts", postHandler.List)
	e.POST("/posts", postHandler.Create, requireAuth, idempotent)
	e.GET("/posts/:id", postHandler.Get)
	e.PUT("/posts/:id", postHandler.Update, requireAuth)
	e.DELETE("/posts/:id", postHandler.Delete, requireAuth)
	e.GET("/posts/:id/comments", postHandler.ListComments)
	e.POST("/posts/:id/comments", postHandler.CreateComment, requireAuth, idempotent)
	e.DELETE("/comments/:id", postHandler.DeleteComment, requireAuth)

	// --- Weather ---
	e.GET("/weather/cache-status", weatherHandler.CacheStatus)
	e.DELETE("/weather/cache", weatherHandler.ClearCache)
	e.GET("/weather/forecast/:city", weatherHandler.Forecast)
	e.GET("/weather/:city", weatherHandler.Current)

	// --- Health probes, metrics and docs (not rate limited) ---
	e.GET("/health", healthHandler.Liveness)        // liveness: is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Registry}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// clientIPExtractor keys clients on the socket peer. X-Forwarded-For is only
// read when the peer falls inside one of the trusted proxy ranges.
func clientIPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range trusted {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
