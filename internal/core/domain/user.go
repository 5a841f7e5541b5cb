package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes  = 72
	// MaxUsernameLength bounds usernames in characters.
	MaxUsernameLength = 50
)

// User is an identity: a unique username and email plus a salted password hash.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername rejects usernames that could be mistaken for an email
// address at login.
func ValidateUsername(username string) error {
	if username == "" {
		return Validation("Username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return Validation("Username must be at most 50 characters long")
	}
	if strings.Contains(username, "@") {
		return Validation("Username must not contain '@'")
	}
	return nil
}

// ValidatePassword enforces the password policy. It runs before hashing so a
// rejected password never reaches the store.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Validation("Password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordBytes {
		return Validation("Password must be at most 72 bytes long")
	}
	for _, r := range password {
		if unicode.IsDigit(r) {
			return nil
		}
	}
	return Validation("Password must contain at least one number")
}
