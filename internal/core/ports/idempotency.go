package ports

import (
	"context"
	"time"
)

type IdempotencyState string

const (
	IdempotencyNew        IdempotencyState = "new"
	IdempotencyReplay     IdempotencyState = "replay"
	IdempotencyMismatch   IdempotencyState = "mismatch"
	IdempotencyInProgress IdempotencyState = "in_progress"
)

// StoredResponse is the response recorded for a completed idempotent request.
type StoredResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type IdempotencyResult struct {
	State    IdempotencyState
	Response *StoredResponse
}

// IdempotencyStore records request fingerprints and their responses per key.
type IdempotencyStore interface {
	Begin(ctx context.Context, key, fingerprint string, ttl time.Duration) (IdempotencyResult, error)
	Complete(ctx context.Context, key, fingerprint string, resp StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}
