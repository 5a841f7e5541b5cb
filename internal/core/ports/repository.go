package ports

import (
	"context"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

// Transactor scopes a unit of work. Repository calls made with the ctx passed to
// fn join the same transaction; a non-nil error from fn rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository persists identities. Lookups return domain.ErrNotFound when
// nothing matches; unique violations surface as domain.ErrConflict.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
}

// ListPostsFilter carries the list query after defaults have been applied.
type ListPostsFilter struct {
	Skip   int
	Limit  int
	Search string // case-insensitive substring of title; empty = no filter
}

// PostRepository persists posts.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) (*domain.Post, error)
	FindByID(ctx context.Context, id int64) (*domain.Post, error)
	// List returns posts ordered by id ascending.
	List(ctx context.Context, filter ListPostsFilter) ([]*domain.Post, error)
	Update(ctx context.Context, post *domain.Post) (*domain.Post, error)
	// DeleteCascade removes the post and every comment referencing it.
	DeleteCascade(ctx context.Context, id int64) error
}

// CommentRepository persists comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	FindByID(ctx context.Context, id int64) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]*domain.Comment, error)
	Delete(ctx context.Context, id int64) error
}

// Store bundles the repositories of one backend with its transactor.
type Store interface {
	Transactor
	Users() UserRepository
	Posts() PostRepository
	Comments() CommentRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
