// Package memory is an in-process implementation of ports.Store. It backs the
// test suites and the STORE_DRIVER=memory mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

type txKey struct{}

type state struct {
	users    map[int64]domain.User
	posts    map[int64]domain.Post
	comments map[int64]domain.Comment
	seq      struct{ users, posts, comments int64 }
}

func (st *state) clone() *state {
	c := &state{
		users:    make(map[int64]domain.User, len(st.users)),
		posts:    make(map[int64]domain.Post, len(st.posts)),
		comments: make(map[int64]domain.Comment, len(st.comments)),
		seq:      st.seq,
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.posts {
		c.posts[k] = v
	}
	for k, v := range st.comments {
		c.comments[k] = v
	}
	return c
}

// Store keeps everything in maps. Writes are serialized with transactions so a
// rollback never discards a concurrent writer's changes.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state

	users    *userRepository
	posts    *postRepository
	comments *commentRepository
}

func New() *Store {
	s := &Store{st: &state{
		users:    map[int64]domain.User{},
		posts:    map[int64]domain.Post{},
		comments: map[int64]domain.Comment{},
	}}
	s.users = &userRepository{s: s}
	s.posts = &postRepository{s: s}
	s.comments = &commentRepository{s: s}
	return s
}

func (s *Store) Users() ports.UserRepository { return s.users }
func (s *Store) Posts() ports.PostRepository { return s.posts }
func (s *Store) Comments() ports.CommentRepository { return s.comments }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close(context.Context) error { return nil }

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// WithinTx snapshots the state and restores it when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	var out domain.User
	err := r.s.write(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Username == user.Username {
				return domain.Conflict("Username already registered")
			}
			if u.Email == user.Email {
				return domain.Conflict("Email already registered")
			}
		}
		st.seq.users++
		out = *user
		out.ID = st.seq.users
		st.users[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) find(match func(domain.User) bool) (*domain.User, error) {
	var (
		out   domain.User
		found bool
	)
	r.s.read(func(st *state) {
		for _, u := range st.users {
			if match(u) {
				out, found = u, true
				return
			}
		}
	})
	if !found {
		return nil, domain.NotFound("User not found")
	}
	return &out, nil
}

func (r *userRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	var out domain.User
	err := r.s.write(ctx, func(st *state) error {
		existing, ok := st.users[user.ID]
		if !ok {
			return domain.NotFound("User not found")
		}
		for id, u := range st.users {
			if id == user.ID {
				continue
			}
			if u.Username == user.Username {
				return domain.Conflict("Username already registered")
			}
			if u.Email == user.Email {
				return domain.Conflict("Email already registered")
			}
		}
		existing.Username = user.Username
		existing.Email = user.Email
		existing.UpdatedAt = user.UpdatedAt
		st.users[user.ID] = existing
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type postRepository struct{ s *Store }

func (r *postRepository) Create(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	var out domain.Post
	err := r.s.write(ctx, func(st *state) error {
		st.seq.posts++
		out = *post
		out.ID = st.seq.posts
		st.posts[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postRepository) FindByID(_ context.Context, id int64) (*domain.Post, error) {
	var (
		out domain.Post
		ok  bool
	)
	r.s.read(func(st *state) { out, ok = st.posts[id] })
	if !ok {
		return nil, domain.NotFound("Post not found")
	}
	return &out, nil
}

func (r *postRepository) List(_ context.Context, filter ports.ListPostsFilter) ([]*domain.Post, error) {
	needle := strings.ToLower(filter.Search)

	var matched []domain.Post
	r.s.read(func(st *state) {
		for _, p := range st.posts {
			if needle == "" || strings.Contains(strings.ToLower(p.Title), needle) {
				matched = append(matched, p)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	out := make([]*domain.Post, 0, filter.Limit)
	for i := filter.Skip; i < len(matched) && len(out) < filter.Limit; i++ {
		p := matched[i]
		out = append(out, &p)
	}
	return out, nil
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	var out domain.Post
	err := r.s.write(ctx, func(st *state) error {
		existing, ok := st.posts[post.ID]
		if !ok {
			return domain.NotFound("Post not found")
		}
		existing.Title = post.Title
		existing.Content = post.Content
		existing.UpdatedAt = post.UpdatedAt
		st.posts[post.ID] = existing
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postRepository) DeleteCascade(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.posts[id]; !ok {
			return domain.NotFound("Post not found")
		}
		for cid, c := range st.comments {
			if c.PostID == id {
				delete(st.comments, cid)
			}
		}
		delete(st.posts, id)
		return nil
	})
}

type commentRepository struct{ s *Store }

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	var out domain.Comment
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.posts[comment.PostID]; !ok {
			return domain.NotFound("Post not found")
		}
		st.seq.comments++
		out = *comment
		out.ID = st.seq.comments
		st.comments[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *commentRepository) FindByID(_ context.Context, id int64) (*domain.Comment, error) {
	var (
		out domain.Comment
		ok  bool
	)
	r.s.read(func(st *state) { out, ok = st.comments[id] })
	if !ok {
		return nil, domain.NotFound("Comment not found")
	}
	return &out, nil
}

func (r *commentRepository) ListByPost(_ context.Context, postID int64) ([]*domain.Comment, error) {
	var matched []domain.Comment
	r.s.read(func(st *state) {
		for _, c := range st.comments {
			if c.PostID == postID {
				matched = append(matched, c)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	out := make([]*domain.Comment, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.comments[id]; !ok {
			return domain.NotFound("Comment not found")
		}
		delete(st.comments, id)
		return nil
	})
}

var _ ports.Store = (*Store)(nil)
