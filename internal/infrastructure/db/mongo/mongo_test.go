package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

func TestTitleFilterQuotesRegex(t *testing.T) {
	if f := titleFilter(""); len(f) != 0 {
		t.Fatalf("expected empty filter, got %v", f)
	}

	f := titleFilter("c++ (advanced)")
	re, ok := f["title"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected regex filter, got %T", f["title"])
	}
	if re.Pattern != `c\+\+ \(advanced\)` {
		t.Fatalf("unexpected pattern %q", re.Pattern)
	}
	if re.Options != "i" {
		t.Fatalf("expected case-insensitive option, got %q", re.Options)
	}
}

func TestDuplicateUserMessage(t *testing.T) {
	if got := duplicateUserMessage(errors.New("E11000 duplicate key error index: email_unique")); got != "Email already registered" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := duplicateUserMessage(errors.New("E11000 duplicate key error index: username_unique")); got != "Username already registered" {
		t.Fatalf("unexpected message %q", got)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, Config{
		URI:      uri,
		Database: fmt.Sprintf("classroom_test_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	t.Cleanup(func() {
		_ = store.db.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	alice, err := store.Users().Create(ctx, &domain.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if alice.ID != 1 {
		t.Fatalf("expected first id 1, got %d", alice.ID)
	}

	_, err = store.Users().Create(ctx, &domain.User{
		Username: "alice", Email: "other@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	var ids []int64
	for _, title := range []string{"Learning Python", "Go tips", "PYTHON tricks"} {
		p, err := store.Posts().Create(ctx, &domain.Post{
			Title: title, Content: "body", AuthorID: alice.ID, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("create post: %v", err)
		}
		ids = append(ids, p.ID)
	}

	found, err := store.Posts().List(ctx, ports.ListPostsFilter{Limit: 10, Search: "python"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(found) != 2 || found[0].ID >= found[1].ID {
		t.Fatalf("expected 2 python posts ordered by id, got %+v", found)
	}

	if _, err := store.Comments().Create(ctx, &domain.Comment{
		Text: "nice", AuthorID: alice.ID, PostID: ids[0], CreatedAt: now,
	}); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if err := store.Posts().DeleteCascade(ctx, ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	comments, err := store.Comments().ListByPost(ctx, ids[0])
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected cascade, got %d comments", len(comments))
	}
	if err := store.Posts().DeleteCascade(ctx, ids[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
