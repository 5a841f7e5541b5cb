package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

func TestUserHandler_Me(t *testing.T) {
	h := NewUserHandler(&stubAuthService{})

	c, _ := newTestContext(t, http.MethodGet, "/users/me", "", "")
	if err := h.Me(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized without identity, got %v", err)
	}

	c, rec := newTestContext(t, http.MethodGet, "/users/me", "", "")
	withUser(c, &domain.User{ID: 3, Username: "carol", Email: "carol@example.com"})
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != 3 || resp.Username != "carol" {
		t.Fatalf("unexpected user %+v", resp)
	}
}

func TestUserHandler_UpdateMe(t *testing.T) {
	stub := &stubAuthService{
		updateFn: func(_ context.Context, actor *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
			if in.Username != nil {
				t.Fatalf("username must be left unchanged")
			}
			if in.Email == nil || *in.Email != "new@example.com" {
				t.Fatalf("unexpected email change %+v", in)
			}
			out := *actor
			out.Email = *in.Email
			return &out, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newTestContext(t, http.MethodPut, "/users/me", `{"email":"new@example.com"}`, echo.MIMEApplicationJSON)
	withUser(c, &domain.User{ID: 3, Username: "carol", Email: "carol@example.com"})
	if err := h.UpdateMe(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_UpdateMe_EmailTaken(t *testing.T) {
	stub := &stubAuthService{
		updateFn: func(context.Context, *domain.User, ports.UpdateProfileInput) (*domain.User, error) {
			return nil, domain.Conflict("Email already in use")
		},
	}
	h := NewUserHandler(stub)

	c, _ := newTestContext(t, http.MethodPut, "/users/me", `{"email":"taken@example.com"}`, echo.MIMEApplicationJSON)
	withUser(c, &domain.User{ID: 3})
	if err := h.UpdateMe(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
