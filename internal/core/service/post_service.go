package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PostService implements the blog surface. Every mutation of an existing post or
// comment passes the ownership guard before touching the store.
type PostService struct {
	store     ports.Store
	sanitizer ports.Sanitizer
	logger    zerolog.Logger
	now       func() time.Time
}

type PostOption func(*PostService)

func WithPostClock(now func() time.Time) PostOption {
	return func(s *PostService) { s.now = now }
}

func NewPostService(store ports.Store, sanitizer ports.Sanitizer, logger zerolog.Logger, opts ...PostOption) *PostService {
	s := &PostService{store: store, sanitizer: sanitizer, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostService) CreatePost(ctx context.Context, actor *domain.User, in ports.CreatePostInput) (*domain.Post, error) {
	if actor == nil {
		return nil, domain.Unauthorized("Could not validate credentials")
	}

	title := s.sanitizer.PlainText(in.Title)
	content := s.sanitizer.RichText(in.Content)
	if title == "" {
		return nil, domain.Validation("Title is required")
	}
	if content == "" {
		return nil, domain.Validation("Content is required")
	}

	now := s.now().UTC()
	post, err := s.store.Posts().Create(ctx, &domain.Post{
		Title:     title,
		Content:   content,
		AuthorID:  actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("post_id", post.ID).Int64("author_id", actor.ID).Msg("post created")
	return post, nil
}

// ListPosts applies the paging defaults and bounds before querying.
func (s *PostService) ListPosts(ctx context.Context, in ports.ListPostsInput) ([]*domain.Post, error) {
	skip, limit := 0, DefaultPageLimit
	if in.Skip != nil {
		skip = *in.Skip
	}
	if in.Limit != nil {
		limit = *in.Limit
	}
	if skip < 0 {
		return nil, domain.Validation("skip must be greater than or equal to 0")
	}
	if limit < 1 || limit > MaxPageLimit {
		return nil, domain.Validation("limit must be between 1 and 100")
	}

	return s.store.Posts().List(ctx, ports.ListPostsFilter{
		Skip:   skip,
		Limit:  limit,
		Search: strings.TrimSpace(in.Search),
	})
}

func (s *PostService) GetPost(ctx context.Context, id int64) (*domain.PostWithComments, error) {
	post, err := s.store.Posts().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.PostWithComments{Post: *post, Comments: comments}, nil
}

func (s *PostService) UpdatePost(ctx context.Context, actor *domain.User, id int64, in ports.UpdatePostInput) (*domain.Post, error) {
	var updated *domain.Post
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		post, err := s.store.Posts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if domain.Authorize(actor, post.AuthorID) == domain.Deny {
			return domain.Forbidden("Not authorized to update this post")
		}

		if in.Title != nil {
			if title := s.sanitizer.PlainText(*in.Title); title != "" {
				post.Title = title
			}
		}
		if in.Content != nil {
			if content := s.sanitizer.RichText(*in.Content); content != "" {
				post.Content = content
			}
		}
		post.UpdatedAt = s.now().UTC()

		updated, err = s.store.Posts().Update(ctx, post)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostService) DeletePost(ctx context.Context, actor *domain.User, id int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		post, err := s.store.Posts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if domain.Authorize(actor, post.AuthorID) == domain.Deny {
			return domain.Forbidden("Not authorized to delete this post")
		}
		return s.store.Posts().DeleteCascade(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("post_id", id).Int64("author_id", actor.ID).Msg("post deleted")
	return nil
}

func (s *PostService) CreateComment(ctx context.Context, actor *domain.User, postID int64, text string) (*domain.Comment, error) {
	if actor == nil {
		return nil, domain.Unauthorized("Could not validate credentials")
	}

	text = s.sanitizer.RichText(text)
	if text == "" {
		return nil, domain.Validation("Comment text is required")
	}

	var created *domain.Comment
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Posts().FindByID(ctx, postID); err != nil {
			return err
		}
		var err error
		created, err = s.store.Comments().Create(ctx, &domain.Comment{
			Text:      text,
			AuthorID:  actor.ID,
			PostID:    postID,
			CreatedAt: s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostService) ListComments(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	if _, err := s.store.Posts().FindByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.Comments().ListByPost(ctx, postID)
}

func (s *PostService) DeleteComment(ctx context.Context, actor *domain.User, id int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		comment, err := s.store.Comments().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if domain.Authorize(actor, comment.AuthorID) == domain.Deny {
			return domain.Forbidden("Not authorized to delete this comment")
		}
		return s.store.Comments().Delete(ctx, id)
	})
}

var _ ports.PostService = (*PostService)(nil)
