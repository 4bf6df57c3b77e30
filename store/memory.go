package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

type memoryEntry struct {
	// counter state (fixed window)
	count int64

	// log state (sliding window), scores in microseconds
	log []logEntry

	// bucket state (token bucket)
	tokens     float64
	lastRefill float64
	hasBucket  bool

	expiration time.Time
}

type logEntry struct {
	score int64
	id    string
}

// Memory is an in-memory implementation of Store.
// Procedures run under a process-local lock, so atomicity holds within one
// process only. Suitable for single-instance deployments and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	stopCh  chan struct{}
}

// NewMemory creates a new in-memory store with automatic cleanup of expired entries.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		stopCh:  make(chan struct{}),
	}

	go m.cleanup()
	return m
}

// Execute runs the named procedure against key under the store lock.
func (m *Memory) Execute(_ context.Context, proc Procedure, key string, args ...any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch proc {
	case ProcFixedWindow:
		return m.fixedWindow(key, Result(args))
	case ProcSlidingWindowLog:
		return m.slidingWindowLog(key, Result(args))
	case ProcTokenBucket:
		return m.tokenBucket(key, Result(args))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcedure, proc)
	}
}

func (m *Memory) entry(key string, now time.Time) *memoryEntry {
	e, ok := m.entries[key]
	if !ok || now.After(e.expiration) {
		e = &memoryEntry{}
		m.entries[key] = e
	}
	return e
}

func (m *Memory) fixedWindow(key string, args Result) (Result, error) {
	windowMillis := args.Int64(0)
	now := time.Now()

	e := m.entry(key, now)
	if e.count == 0 {
		e.expiration = now.Add(time.Duration(windowMillis) * time.Millisecond)
	}
	e.count++

	ttl := max(int64(0), int64(time.Until(e.expiration)/time.Millisecond))
	return Result{e.count, ttl}, nil
}

func (m *Memory) slidingWindowLog(key string, args Result) (Result, error) {
	nowMicros := args.Int64(0)
	windowMicros := args.Int64(1)
	limit := args.Int64(2)
	id := fmt.Sprint(args[3])

	// Expiry is driven by the caller-supplied clock, not wall time, so the
	// procedure stays deterministic under an injected clock.
	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{}
		m.entries[key] = e
	}

	cutoff := nowMicros - windowMicros
	kept := e.log[:0]
	for _, le := range e.log {
		if le.score >= cutoff {
			kept = append(kept, le)
		}
	}
	e.log = kept

	var admitted int64
	count := int64(len(e.log))
	if count < limit {
		e.log = append(e.log, logEntry{score: nowMicros, id: id})
		e.expiration = time.Now().Add(time.Duration(windowMicros) * time.Microsecond)
		admitted = 1
		count++
	}

	var oldest int64
	if len(e.log) > 0 {
		oldest = e.log[0].score
	}
	return Result{admitted, count, oldest}, nil
}

func (m *Memory) tokenBucket(key string, args Result) (Result, error) {
	capacity := args.Float64(0)
	rate := args.Float64(1)
	now := args.Float64(2)
	ttlMillis := args.Int64(3)

	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{}
		m.entries[key] = e
	}
	if !e.hasBucket {
		e.tokens = capacity
		e.lastRefill = now
		e.hasBucket = true
	}

	elapsed := math.Max(0, now-e.lastRefill)
	e.tokens = math.Min(capacity, e.tokens+elapsed*rate)

	var admitted int64
	if e.tokens >= 1 {
		e.tokens--
		admitted = 1
	}

	e.lastRefill = now
	e.expiration = time.Now().Add(time.Duration(ttlMillis) * time.Millisecond)

	return Result{admitted, e.tokens}, nil
}

// Reset removes all state for the given key.
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	close(m.stopCh)
	return nil
}

func (m *Memory) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()

			m.mu.Lock()
			for key, entry := range m.entries {
				if !entry.expiration.IsZero() && now.After(entry.expiration) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}
