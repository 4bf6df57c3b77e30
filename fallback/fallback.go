// Package fallback provides a per-process rate limiter used while the shared
// store is unreachable.
//
// Accuracy degrades from fleet-wide to per-instance: each server process
// enforces the tier limit independently, so a caller can at most multiply its
// quota by the number of instances, never achieve unlimited throughput.
package fallback

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store holds one token bucket per key, backed by golang.org/x/time/rate.
// A background janitor evicts keys not seen within the idle TTL.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	idleTTL      time.Duration
	cleanupEvery time.Duration
	done         chan struct{}
	closed       bool
}

// Option configures a Store.
type Option func(*Store)

// WithIdleTTL sets how long an unused key survives before eviction.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Store) { s.idleTTL = d }
}

// WithCleanupEvery sets the janitor interval.
func WithCleanupEvery(d time.Duration) Option {
	return func(s *Store) { s.cleanupEvery = d }
}

// New creates a fallback store and starts its janitor goroutine.
func New(opts ...Option) *Store {
	s := &Store{
		entries:      make(map[string]*entry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.janitor()
	return s
}

// Allow checks whether one request for key should be admitted at the given
// steady rate (events per second) and burst. The bucket for a key is created
// full on first use, mirroring the shared store's lazy initialization.
func (s *Store) Allow(key string, perSecond float64, burst int64) bool {
	if burst < 1 {
		burst = 1
	}

	now := time.Now()

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst))}
		s.entries[key] = e
	}
	e.lastSeen = now
	s.mu.Unlock()

	return e.limiter.Allow()
}

// Remaining reports the whole tokens currently available for key, or burst
// when the key has no bucket yet.
func (s *Store) Remaining(key string, burst int64) int64 {
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()

	if !ok {
		return burst
	}
	return int64(math.Max(0, math.Floor(e.limiter.Tokens())))
}

// Len reports how many keys are currently tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the janitor goroutine.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

func (s *Store) janitor() {
	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictStale()
		}
	}
}

func (s *Store) evictStale() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}
