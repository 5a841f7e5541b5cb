package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

const keyPrefix = "idempotency:"

const (
	statusPending = "pending"
	statusDone    = "done"
)

// record is the JSON value stored per key.
type record struct {
	Fingerprint string                `json:"fingerprint"`
	Status      string                `json:"status"`
	Response    *ports.StoredResponse `json:"response,omitempty"`
}

// IdempotencyStore implements ports.IdempotencyStore on Redis.
// Key format: idempotency:<client key>
type IdempotencyStore struct {
	client redis.UniversalClient
}

func NewIdempotencyStore(client redis.UniversalClient) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Begin claims key with SETNX. When the key already exists the stored record
// decides between replay, mismatch and in-progress.
func (s *IdempotencyStore) Begin(ctx context.Context, key, fingerprint string, ttl time.Duration) (ports.IdempotencyResult, error) {
	pending, err := json.Marshal(record{Fingerprint: fingerprint, Status: statusPending})
	if err != nil {
		return ports.IdempotencyResult{}, err
	}

	// A second attempt covers a key that expires between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, s.key(key), pending, ttl).Result()
		if err != nil {
			return ports.IdempotencyResult{}, fmt.Errorf("idempotency claim: %w", err)
		}
		if ok {
			return ports.IdempotencyResult{State: ports.IdempotencyNew}, nil
		}

		raw, err := s.client.Get(ctx, s.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return ports.IdempotencyResult{}, fmt.Errorf("idempotency lookup: %w", err)
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return ports.IdempotencyResult{}, fmt.Errorf("idempotency decode: %w", err)
		}
		switch {
		case rec.Fingerprint != fingerprint:
			return ports.IdempotencyResult{State: ports.IdempotencyMismatch}, nil
		case rec.Status != statusDone || rec.Response == nil:
			return ports.IdempotencyResult{State: ports.IdempotencyInProgress}, nil
		default:
			return ports.IdempotencyResult{State: ports.IdempotencyReplay, Response: rec.Response}, nil
		}
	}
	return ports.IdempotencyResult{State: ports.IdempotencyInProgress}, nil
}

// Complete stores the final response under key, replacing the pending marker.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, resp ports.StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(record{Fingerprint: fingerprint, Status: statusDone, Response: &resp})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency complete: %w", err)
	}
	return nil
}

// Release drops the key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(k string) string {
	return keyPrefix + k
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)
