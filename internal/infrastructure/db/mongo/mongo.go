// Package mongo implements the user, post and comment repositories on MongoDB.
// Documents use integer _id values drawn from a counters collection so that ids
// look the same as with the SQL backend.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers    = "users"
	collectionPosts    = "posts"
	collectionComments = "comments"
	collectionCounters = "counters"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
	// Transactions enables multi-document transactions. It needs a replica set.
	Transactions bool
}

// Store is the MongoDB implementation of ports.Store.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool

	users    *UserRepository
	posts    *PostRepository
	comments *CommentRepository
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns a Store over the selected database. A default timeout is applied when
// none is provided.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return NewStore(client, client.Database(cfg.Database), cfg.Transactions), nil
}

// NewStore wraps an already connected client.
func NewStore(client *mongo.Client, db *mongo.Database, transactions bool) *Store {
	s := &Store{client: client, db: db, transactions: transactions}
	counters := db.Collection(collectionCounters)
	s.users = &UserRepository{col: db.Collection(collectionUsers), counters: counters}
	s.posts = &PostRepository{
		col:      db.Collection(collectionPosts),
		comments: db.Collection(collectionComments),
		counters: counters,
	}
	s.comments = &CommentRepository{col: db.Collection(collectionComments), counters: counters}
	return s
}

func (s *Store) Users() ports.UserRepository { return s.users }
func (s *Store) Posts() ports.PostRepository { return s.posts }
func (s *Store) Comments() ports.CommentRepository { return s.comments }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// WithinTx runs fn inside a session transaction when transactions are enabled.
// Without them fn runs directly and a failure part way leaves earlier writes in
// place.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.db.Collection(collectionUsers).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
	})
	if err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	_, err = s.db.Collection(collectionComments).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("comment indexes: %w", err)
	}
	return nil
}

// nextID atomically increments the named sequence and returns the new value.
func nextID(ctx context.Context, counters *mongo.Collection, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

// duplicateUserMessage picks the conflict message from the violated index.
func duplicateUserMessage(err error) string {
	if strings.Contains(err.Error(), "email") {
		return "Email already registered"
	}
	return "Username already registered"
}

func notFound(err error, msg, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.NotFound(msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ ports.Store = (*Store)(nil)
