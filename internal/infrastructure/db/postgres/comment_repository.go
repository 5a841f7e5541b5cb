package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

const commentColumns = `id, text, author_id, post_id, created_at`

type CommentRepository struct {
	store *Store
}

func scanComment(row interface{ Scan(...any) error }) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.Text, &c.AuthorID, &c.PostID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	row := r.store.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO comments (text, author_id, post_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+commentColumns,
		comment.Text, comment.AuthorID, comment.PostID, comment.CreatedAt,
	)
	created, err := scanComment(row)
	if err != nil {
		return nil, translate(err, "insert comment")
	}
	return created, nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id int64) (*domain.Comment, error) {
	row := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("Comment not found")
	}
	if err != nil {
		return nil, translate(err, "find comment")
	}
	return c, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY id ASC`, postID)
	if err != nil {
		return nil, translate(err, "list comments")
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, translate(err, "scan comment")
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list comments")
	}
	return comments, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.store.conn(ctx).ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete comment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, "delete comment")
	}
	if n == 0 {
		return domain.NotFound("Comment not found")
	}
	return nil
}
