package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

const postColumns = `id, title, content, author_id, created_at, updated_at`

type PostRepository struct {
	store *Store
}

func scanPost(row interface{ Scan(...any) error }) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// likePattern escapes LIKE wildcards so search terms match literally.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	row := r.store.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO posts (title, content, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+postColumns,
		post.Title, post.Content, post.AuthorID, post.CreatedAt, post.UpdatedAt,
	)
	created, err := scanPost(row)
	if err != nil {
		return nil, translate(err, "insert post")
	}
	return created, nil
}

func (r *PostRepository) FindByID(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("Post not found")
	}
	if err != nil {
		return nil, translate(err, "find post")
	}
	return p, nil
}

func (r *PostRepository) List(ctx context.Context, filter ports.ListPostsFilter) ([]*domain.Post, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.Search != "" {
		rows, err = r.store.conn(ctx).QueryContext(ctx,
			`SELECT `+postColumns+` FROM posts
			 WHERE title ILIKE $1 ESCAPE '\'
			 ORDER BY id ASC OFFSET $2 LIMIT $3`,
			likePattern(filter.Search), filter.Skip, filter.Limit)
	} else {
		rows, err = r.store.conn(ctx).QueryContext(ctx,
			`SELECT `+postColumns+` FROM posts
			 ORDER BY id ASC OFFSET $1 LIMIT $2`,
			filter.Skip, filter.Limit)
	}
	if err != nil {
		return nil, translate(err, "list posts")
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0, filter.Limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, translate(err, "scan post")
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list posts")
	}
	return posts, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	row := r.store.conn(ctx).QueryRowContext(ctx,
		`UPDATE posts SET title = $2, content = $3, updated_at = $4
		 WHERE id = $1
		 RETURNING `+postColumns,
		post.ID, post.Title, post.Content, post.UpdatedAt,
	)
	updated, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("Post not found")
	}
	if err != nil {
		return nil, translate(err, "update post")
	}
	return updated, nil
}

// DeleteCascade relies on the comments.post_id ON DELETE CASCADE constraint.
func (r *PostRepository) DeleteCascade(ctx context.Context, id int64) error {
	res, err := r.store.conn(ctx).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete post")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, "delete post")
	}
	if n == 0 {
		return domain.NotFound("Post not found")
	}
	return nil
}
