package middleware

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig configures Idempotency.
type IdempotencyConfig struct {
	Store  ports.IdempotencyStore
	TTL    time.Duration
	Logger zerolog.Logger
	// OnResult receives "new", "replay", "mismatch" or "in_progress".
	OnResult func(result string)
}

// Idempotency makes POST handlers safe to retry when the client sends an
// Idempotency-Key header. Keys are scoped to the authenticated user, so the
// middleware must run after Auth. Requests without the header pass through.
func Idempotency(cfg IdempotencyConfig) echo.MiddlewareFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	report := func(s ports.IdempotencyState) {
		if cfg.OnResult != nil {
			cfg.OnResult(string(s))
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderIdempotencyKey)
			if key == "" || cfg.Store == nil {
				return next(c)
			}
			if len(key) > maxIdempotencyKeyLength {
				return domain.Validation("Idempotency-Key must be at most 255 characters")
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return domain.Validation("could not read request body")
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			scoped := scopeKey(c, key)
			fingerprint := fingerprintRequest(c.Request(), body)
			ctx := c.Request().Context()

			res, err := cfg.Store.Begin(ctx, scoped, fingerprint, cfg.TTL)
			if err != nil {
				return domain.Unavailable("Idempotency store unavailable", err)
			}
			report(res.State)

			switch res.State {
			case ports.IdempotencyReplay:
				c.Response().Header().Set(HeaderReplayed, "true")
				return c.Blob(res.Response.StatusCode, res.Response.ContentType, res.Response.Body)
			case ports.IdempotencyMismatch:
				return domain.Conflict("Idempotency-Key was already used with a different request")
			case ports.IdempotencyInProgress:
				return domain.Conflict("A request with this Idempotency-Key is still in progress")
			}

			resBody := new(bytes.Buffer)
			writer := &bodyCaptureWriter{
				Writer:         io.MultiWriter(c.Response().Writer, resBody),
				ResponseWriter: c.Response().Writer,
			}
			c.Response().Writer = writer

			// A panic skips Complete; free the key so retries are not stuck
			// behind a pending marker until it expires.
			returned := false
			defer func() {
				if returned {
					return
				}
				if err := cfg.Store.Release(ctx, scoped); err != nil {
					cfg.Logger.Warn().Err(err).Str("key", key).Msg("idempotency release failed")
				}
			}()

			err = next(c)
			returned = true
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			if status >= http.StatusInternalServerError {
				if err := cfg.Store.Release(ctx, scoped); err != nil {
					cfg.Logger.Warn().Err(err).Str("key", key).Msg("idempotency release failed")
				}
				return nil
			}

			stored := ports.StoredResponse{
				StatusCode:  status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        resBody.Bytes(),
			}
			if err := cfg.Store.Complete(ctx, scoped, fingerprint, stored, cfg.TTL); err != nil {
				cfg.Logger.Warn().Err(err).Str("key", key).Msg("idempotency complete failed")
			}
			return nil
		}
	}
}

func scopeKey(c echo.Context, key string) string {
	var owner int64
	if u := CurrentUser(c); u != nil {
		owner = u.ID
	}
	return strconv.FormatInt(owner, 10) + ":" + key
}

func fingerprintRequest(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// bodyCaptureWriter tees the response body into a buffer.
type bodyCaptureWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w *bodyCaptureWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func (w *bodyCaptureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *bodyCaptureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (w *bodyCaptureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
