// Package ratelimit implements a per-client sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the result of a single Check.
type Decision struct {
	Allowed bool
	// Remaining is how many more requests fit in the current window.
	Remaining int
	// RetryAfter is how long until the oldest counted request leaves the window.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// SlidingWindow allows at most Limit requests per client within any trailing
// Window. Each client keeps an ordered log of accepted request instants; the log
// is pruned on every Check, and denied requests are never recorded, so a client
// that keeps retrying while throttled is released once its old requests age out.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) { s.now = now }
}

func NewSlidingWindow(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	if limit <= 0 {
		limit = 1
	}
	s := &SlidingWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlidingWindow) Limit() int { return s.limit }
func (s *SlidingWindow) Window() time.Duration { return s.window }

// Check records a request for key and reports whether it is within quota.
func (s *SlidingWindow) Check(key string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)

	log := s.clients[key]
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	log = log[i:]

	if len(log) >= s.limit {
		s.clients[key] = log
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: log[0].Add(s.window).Sub(now),
		}
	}

	log = append(log, now)
	s.clients[key] = log
	return Decision{Allowed: true, Remaining: s.limit - len(log)}
}

// Clients returns the number of tracked client keys.
func (s *SlidingWindow) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
