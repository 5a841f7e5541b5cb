package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

type stubResolver struct {
	resolveFn func(ctx context.Context, token string) (*domain.User, error)
}

func (s *stubResolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	return s.resolveFn(ctx, token)
}

func okResolver(t *testing.T) *stubResolver {
	return &stubResolver{resolveFn: func(_ context.Context, token string) (*domain.User, error) {
		if token != "good-token" {
			t.Fatalf("unexpected token %q", token)
		}
		return &domain.User{ID: 7, Username: "alice"}, nil
	}}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(okResolver(t))(func(c echo.Context) error {
		called = true
		u := CurrentUser(c)
		if u == nil || u.ID != 7 {
			t.Fatalf("user not set: %+v", u)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer good-token")
	c := e.NewContext(req, httptest.NewRecorder())

	err := Auth(okResolver(t))(func(c echo.Context) error { return nil })(c)
	if err != nil {
		t.Fatalf("expected lower-case scheme to be accepted, got %v", err)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Auth(okResolver(t))(func(c echo.Context) error {
		t.Fatalf("next should not be called")
		return nil
	})(c)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	for _, h := range []string{"Basic abc", "Bearer", "Bearer   ", "token"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", h)
		c := e.NewContext(req, httptest.NewRecorder())

		err := Auth(okResolver(t))(func(c echo.Context) error { return nil })(c)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("header %q: expected unauthorized, got %v", h, err)
		}
	}
}

func TestAuthMiddleware_ResolverRejects(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")
	c := e.NewContext(req, httptest.NewRecorder())

	resolver := &stubResolver{resolveFn: func(context.Context, string) (*domain.User, error) {
		return nil, domain.Unauthorized("Could not validate credentials")
	}}
	err := Auth(resolver)(func(c echo.Context) error {
		t.Fatalf("next should not be called")
		return nil
	})(c)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
