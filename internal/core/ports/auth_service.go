package ports

import (
	"context"
	"time"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateProfileInput holds optional changes; nil means "leave unchanged".
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

// Token is a signed bearer credential.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// TokenResolver turns a bearer token into the identity it was issued for.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

type AuthService interface {
	TokenResolver
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// Authenticate accepts a username or an email as login.
	Authenticate(ctx context.Context, login, password string) (*Token, error)
	UpdateProfile(ctx context.Context, actor *domain.User, in UpdateProfileInput) (*domain.User, error)
}
