package ports

import (
	"context"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

type CreatePostInput struct {
	Title   string
	Content string
}

// UpdatePostInput holds optional changes; nil or empty means "leave unchanged".
type UpdatePostInput struct {
	Title   *string
	Content *string
}

type ListPostsInput struct {
	Skip   *int
	Limit  *int
	Search string
}

type PostService interface {
	CreatePost(ctx context.Context, actor *domain.User, in CreatePostInput) (*domain.Post, error)
	ListPosts(ctx context.Context, in ListPostsInput) ([]*domain.Post, error)
	GetPost(ctx context.Context, id int64) (*domain.PostWithComments, error)
	UpdatePost(ctx context.Context, actor *domain.User, id int64, in UpdatePostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, actor *domain.User, id int64) error

	CreateComment(ctx context.Context, actor *domain.User, postID int64, text string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, actor *domain.User, id int64) error
}

// Sanitizer cleans user-supplied text before it is stored.
type Sanitizer interface {
	// PlainText strips all markup.
	PlainText(s string) string
	// RichText keeps a safe subset of HTML.
	RichText(s string) string
}
