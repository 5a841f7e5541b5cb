package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/db/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestAuthService(clock *fakeClock) (*AuthService, *memory.Store) {
	store := memory.New()
	svc := NewAuthService(store.Users(), store, "secret", 30*time.Minute,
		WithAuthClock(clock.Now), WithBcryptCost(bcrypt.MinCost))
	return svc, store
}

func register(t *testing.T, svc *AuthService, username, email string) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: username, Email: email, Password: "passw0rd!",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, _ := newTestAuthService(newFakeClock())

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "Alice@Example.com", Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if user.PasswordHash == "pass1234" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass1234")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if !user.IsActive {
		t.Fatalf("expected new user to be active")
	}
}

func TestAuthService_Register_PasswordPolicy(t *testing.T) {
	svc, store := newTestAuthService(newFakeClock())

	cases := map[string]string{
		"short":     "abc1",
		"no digits": "password",
		"too long":  strings.Repeat("a", 80) + "1",
	}
	for name, pw := range cases {
		_, err := svc.Register(context.Background(), ports.RegisterInput{Username: "bob", Email: "bob@example.com", Password: pw})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := store.Users().FindByUsername(context.Background(), "bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rejected password must not reach the store, got %v", err)
	}
}

func TestAuthService_Register_UsernameWithAt(t *testing.T) {
	svc, store := newTestAuthService(newFakeClock())

	_, err := svc.Register(context.Background(), ports.RegisterInput{Username: "bob@home", Email: "bob@example.com", Password: "secret123"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.Users().FindByEmail(context.Background(), "bob@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rejected username must not reach the store, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc, store := newTestAuthService(newFakeClock())
	first := register(t, svc, "bob", "bob@example.com")

	_, err := svc.Register(context.Background(), ports.RegisterInput{Username: "bob", Email: "other@example.com", Password: "pass1234"})
	if !errors.Is(err, domain.ErrConflict) || domain.MessageOf(err) != "Username already registered" {
		t.Fatalf("expected username conflict, got %v", err)
	}

	_, err = svc.Register(context.Background(), ports.RegisterInput{Username: "robert", Email: "BOB@example.com", Password: "pass1234"})
	if !errors.Is(err, domain.ErrConflict) || domain.MessageOf(err) != "Email already registered" {
		t.Fatalf("expected email conflict, got %v", err)
	}

	again, err := store.Users().FindByUsername(context.Background(), "bob")
	if err != nil || again.ID != first.ID {
		t.Fatalf("first identity should remain queryable: %+v, %v", again, err)
	}
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestAuthService(clock)
	user := register(t, svc, "carol", "carol@example.com")

	for _, login := range []string{"carol", "Carol@Example.com"} {
		token, err := svc.Authenticate(context.Background(), login, "passw0rd!")
		if err != nil {
			t.Fatalf("login %q failed: %v", login, err)
		}
		if token.TokenType != "bearer" || token.AccessToken == "" {
			t.Fatalf("unexpected token: %+v", token)
		}
		if !token.ExpiresAt.Equal(clock.Now().Add(30 * time.Minute)) {
			t.Fatalf("unexpected expiry %v", token.ExpiresAt)
		}

		claims := &tokenClaims{}
		_, err = jwt.ParseWithClaims(token.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
			return []byte("secret"), nil
		}, jwt.WithTimeFunc(clock.Now))
		if err != nil {
			t.Fatalf("token invalid: %v", err)
		}
		if claims.Subject != strconv.FormatInt(user.ID, 10) {
			t.Fatalf("expected subject %d, got %s", user.ID, claims.Subject)
		}
		if claims.Username != "carol" || claims.ID == "" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	}
}

func TestAuthService_Authenticate_InvalidPassword(t *testing.T) {
	svc, _ := newTestAuthService(newFakeClock())
	register(t, svc, "dave", "dave@example.com")

	for _, pw := range []string{"passw0rd", "passw0rd!!", "PASSW0RD!", ""} {
		_, err := svc.Authenticate(context.Background(), "dave", pw)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("password %q: expected unauthorized, got %v", pw, err)
		}
	}
}

func TestAuthService_Authenticate_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(newFakeClock())

	_, err := svc.Authenticate(context.Background(), "ghost", "passw0rd!")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if domain.MessageOf(err) != "Incorrect username or password" {
		t.Fatalf("unexpected message %q", domain.MessageOf(err))
	}
}

func TestAuthService_Resolve_Expiry(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestAuthService(clock)
	user := register(t, svc, "erin", "erin@example.com")

	token, err := svc.Authenticate(context.Background(), "erin", "passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	clock.Advance(30*time.Minute - time.Second)
	resolved, err := svc.Resolve(context.Background(), token.AccessToken)
	if err != nil {
		t.Fatalf("expected token to be valid just before expiry: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("resolved wrong user %d", resolved.ID)
	}

	clock.Advance(2 * time.Second)
	if _, err := svc.Resolve(context.Background(), token.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after expiry, got %v", err)
	}
}

func TestAuthService_Resolve_RejectsTampering(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestAuthService(clock)
	register(t, svc, "frank", "frank@example.com")

	token, _ := svc.Authenticate(context.Background(), "frank", "passw0rd!")

	other := NewAuthService(store.Users(), store, "another-secret", time.Hour, WithAuthClock(clock.Now), WithBcryptCost(bcrypt.MinCost))
	if _, err := other.Resolve(context.Background(), token.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong secret, got %v", err)
	}

	for _, bad := range []string{"", "not-a-jwt", token.AccessToken + "x"} {
		if _, err := svc.Resolve(context.Background(), bad); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("token %q: expected unauthorized, got %v", bad, err)
		}
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := svc.Resolve(context.Background(), unsigned); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for alg none, got %v", err)
	}
}

func TestAuthService_Resolve_UnknownSubject(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestAuthService(clock)

	claims := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "404",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))

	if _, err := svc.Resolve(context.Background(), signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestAuthService(clock)
	alice := register(t, svc, "alice", "alice@example.com")
	register(t, svc, "bob", "bob@example.com")

	taken := "BOB@example.com"
	_, err := svc.UpdateProfile(context.Background(), alice, ports.UpdateProfileInput{Email: &taken})
	if !errors.Is(err, domain.ErrConflict) || domain.MessageOf(err) != "Email already in use" {
		t.Fatalf("expected email conflict, got %v", err)
	}

	takenName := "bob"
	_, err = svc.UpdateProfile(context.Background(), alice, ports.UpdateProfileInput{Username: &takenName})
	if !errors.Is(err, domain.ErrConflict) || domain.MessageOf(err) != "Username already in use" {
		t.Fatalf("expected username conflict, got %v", err)
	}

	clock.Advance(time.Minute)
	newEmail := "alice@new.example.com"
	updated, err := svc.UpdateProfile(context.Background(), alice, ports.UpdateProfileInput{Email: &newEmail})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Email != newEmail || updated.Username != "alice" {
		t.Fatalf("unexpected user %+v", updated)
	}
	if !updated.UpdatedAt.After(alice.CreatedAt) {
		t.Fatalf("expected updated_at to move forward")
	}

	same := "alice"
	if _, err := svc.UpdateProfile(context.Background(), alice, ports.UpdateProfileInput{Username: &same}); err != nil {
		t.Fatalf("keeping own username should not conflict: %v", err)
	}

	withAt := "alice@home"
	if _, err := svc.UpdateProfile(context.Background(), alice, ports.UpdateProfileInput{Username: &withAt}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for username with '@', got %v", err)
	}
}
