package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

const (
	defaultTokenTTL = 30 * time.Minute
	tokenType       = "bearer"

	msgBadCredentials = "Incorrect username or password"
	msgBadToken       = "Could not validate credentials"
)

// dummyPassword is hashed once per service so unknown logins still pay for a
// bcrypt comparison.
const dummyPassword = "not-a-real-password-0"

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService implements registration, login and token resolution.
type AuthService struct {
	users     ports.UserRepository
	tx        ports.Transactor
	jwtSecret []byte
	tokenTTL  time.Duration
	cost      int
	now       func() time.Time
	dummyHash []byte
}

type AuthOption func(*AuthService)

// WithAuthClock overrides the time source used for token issue and expiry checks.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

func NewAuthService(users ports.UserRepository, tx ports.Transactor, jwtSecret string, tokenTTL time.Duration, opts ...AuthOption) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	s := &AuthService{
		users:     users,
		tx:        tx,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), s.cost)
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, domain.Validation("Email is required")
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, domain.Validation("Password must be at most 72 bytes long")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var created *domain.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, username, "", "Username already registered", "Email already registered"); err != nil {
			return err
		}
		if err := s.ensureFree(ctx, "", email, "Username already registered", "Email already registered"); err != nil {
			return err
		}
		var err error
		created, err = s.users.Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ensureFree fails with Conflict when username or email (whichever is non-empty)
// belongs to an existing user.
func (s *AuthService) ensureFree(ctx context.Context, username, email, usernameMsg, emailMsg string) error {
	var (
		err error
		msg string
	)
	if username != "" {
		_, err = s.users.FindByUsername(ctx, username)
		msg = usernameMsg
	} else {
		_, err = s.users.FindByEmail(ctx, email)
		msg = emailMsg
	}
	switch {
	case err == nil:
		return domain.Conflict(msg)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Authenticate accepts a username or an email address as login.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*ports.Token, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domain.Unauthorized(msgBadCredentials)
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.users.FindByEmail(ctx, domain.NormalizeEmail(login))
	} else {
		user, err = s.users.FindByUsername(ctx, login)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, domain.Unauthorized(msgBadCredentials)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.Unauthorized(msgBadCredentials)
	}
	if !user.IsActive {
		return nil, domain.Unauthorized(msgBadCredentials)
	}

	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *domain.User) (*ports.Token, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := tokenClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &ports.Token{AccessToken: signed, TokenType: tokenType, ExpiresAt: expiresAt}, nil
}

// Resolve verifies the signature and expiry, then reloads the subject.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.Unauthorized(msgBadToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var claims tokenClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.Unauthorized(msgBadToken)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, domain.Unauthorized(msgBadToken)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized(msgBadToken)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.Unauthorized(msgBadToken)
	}
	return user, nil
}

// UpdateProfile changes the actor's username and/or email. Unchanged or empty
// values are ignored.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
	if actor == nil {
		return nil, domain.Unauthorized(msgBadToken)
	}

	var updated *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.users.FindByID(ctx, actor.ID)
		if err != nil {
			return err
		}

		if in.Username != nil {
			if username := strings.TrimSpace(*in.Username); username != "" && username != current.Username {
				if err := domain.ValidateUsername(username); err != nil {
					return err
				}
				if err := s.ensureFree(ctx, username, "", "Username already in use", ""); err != nil {
					return err
				}
				current.Username = username
			}
		}
		if in.Email != nil {
			if email := domain.NormalizeEmail(*in.Email); email != "" && email != current.Email {
				if err := s.ensureFree(ctx, "", email, "", "Email already in use"); err != nil {
					return err
				}
				current.Email = email
			}
		}

		current.UpdatedAt = s.now().UTC()
		updated, err = s.users.Update(ctx, current)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

var _ ports.AuthService = (*AuthService)(nil)
