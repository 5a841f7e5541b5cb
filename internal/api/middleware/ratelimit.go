package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/FreeRikato/classroom-api/internal/infrastructure/ratelimit"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// Skipper exempts requests from the limiter.
	Skipper echomiddleware.Skipper
	// OnReject is called once per rejected request.
	OnReject func()
}

// ExemptPaths skips health probes, metrics and the API docs.
func ExemptPaths(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/health" || p == "/health/ready" || p == "/metrics" || strings.HasPrefix(p, "/swagger/")
}

// RateLimit applies the sliding window per client address. Rejections are
// written directly as 429 with a Retry-After header.
func RateLimit(limiter *ratelimit.SlidingWindow, cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomiddleware.DefaultSkipper
	}
	message := fmt.Sprintf("Rate limit exceeded. Max %d requests per %s.", limiter.Limit(), windowLabel(limiter.Window()))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			d := limiter.Check(c.RealIP())
			if d.Allowed {
				return next(c)
			}

			if cfg.OnReject != nil {
				cfg.OnReject()
			}
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(retry))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": message})
		}
	}
}

func windowLabel(w time.Duration) string {
	switch w {
	case time.Minute:
		return "minute"
	case time.Second:
		return "second"
	case time.Hour:
		return "hour"
	}
	return w.String()
}
