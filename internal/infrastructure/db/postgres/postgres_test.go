package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

func TestLikePatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"python":  "%python%",
		"50%":     `%50\%%`,
		"snake_c": `%snake\_c%`,
		`a\b`:     `%a\\b%`,
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Fatalf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslateUniqueViolation(t *testing.T) {
	err := translate(&pq.Error{Code: uniqueViolation, Constraint: "users_email_key"}, "insert user")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if msg := domain.MessageOf(err); msg != "Email already registered" {
		t.Fatalf("unexpected message %q", msg)
	}

	err = translate(&pq.Error{Code: uniqueViolation, Constraint: "users_username_key"}, "insert user")
	if msg := domain.MessageOf(err); msg != "Username already registered" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestTranslatePassesOtherErrorsThrough(t *testing.T) {
	cause := errors.New("boom")
	err := translate(cause, "op")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if domain.KindOf(err) != "" {
		t.Fatalf("expected no domain kind, got %q", domain.KindOf(err))
	}
	if translate(nil, "op") != nil {
		t.Fatal("expected nil for nil error")
	}
}

// openTestStore connects to TEST_DATABASE_URL, migrates and truncates. The test is
// skipped when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := Migrate(url); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	store, err := Connect(ctx, Config{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `TRUNCATE comments, posts, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	alice, err := store.Users().Create(ctx, &domain.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err = store.Users().Create(ctx, &domain.User{
		Username: "alice2", Email: "alice@example.com", PasswordHash: "x", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}

	titles := []string{"Learning Python", "Go tips", "python_tricks"}
	var first *domain.Post
	for _, title := range titles {
		p, err := store.Posts().Create(ctx, &domain.Post{
			Title: title, Content: "body", AuthorID: alice.ID, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("create post: %v", err)
		}
		if first == nil {
			first = p
		}
	}

	found, err := store.Posts().List(ctx, ports.ListPostsFilter{Limit: 10, Search: "PYTHON"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 python posts, got %d", len(found))
	}

	if _, err := store.Comments().Create(ctx, &domain.Comment{
		Text: "nice", AuthorID: alice.ID, PostID: first.ID, CreatedAt: now,
	}); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if err := store.Posts().DeleteCascade(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	comments, err := store.Comments().ListByPost(ctx, first.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected cascade to remove comments, got %d", len(comments))
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	sentinel := errors.New("abort")

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := store.Users().Create(ctx, &domain.User{
			Username: "bob", Email: "bob@example.com", PasswordHash: "x", IsActive: true,
			CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if _, err := store.Users().FindByUsername(ctx, "bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}
