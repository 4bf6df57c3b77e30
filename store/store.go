// Package store provides the shared counting backends for rate limiting.
//
// Algorithms express their counting logic as named atomic procedures. A
// procedure runs as a single indivisible unit relative to any other execution
// against the same key, even when two server processes target the key
// simultaneously. The Redis store runs procedures as Lua scripts; the Memory
// store runs them under a process-local lock and is only suitable for
// single-instance deployments and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Procedure names an atomic procedure a store knows how to execute.
type Procedure string

const (
	// ProcFixedWindow increments a windowed counter, setting its TTL on first
	// increment. Args: window in milliseconds. Result: [count, ttlMillis].
	ProcFixedWindow Procedure = "fixed_window"

	// ProcSlidingWindowLog expires old log entries, counts the survivors, and
	// appends the new entry only when under the limit.
	// Args: now in microseconds, window in microseconds, limit, entry ID.
	// Result: [admitted(0|1), countAfter, oldestMicros] where oldestMicros is
	// 0 when the log is empty.
	ProcSlidingWindowLog Procedure = "sliding_window_log"

	// ProcTokenBucket refills the bucket from elapsed time and consumes one
	// token when available. Args: capacity, refill rate per second, now in
	// seconds (float), TTL in milliseconds.
	// Result: [admitted(0|1), tokens(float)].
	ProcTokenBucket Procedure = "token_bucket"
)

var (
	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("store unavailable")

	// ErrTimeout indicates the operation exceeded its budget. Callers treat
	// it identically to ErrUnavailable.
	ErrTimeout = errors.New("store operation timed out")

	// ErrUnknownProcedure indicates the store has no procedure by that name.
	ErrUnknownProcedure = errors.New("unknown procedure")
)

// Store executes named atomic procedures against keyed state.
// Implementations must be safe for concurrent use and must never retry
// internally; a failed execution surfaces immediately.
type Store interface {
	// Execute runs the named procedure against key as a single atomic unit
	// and returns its result tuple. Errors wrap ErrUnavailable, ErrTimeout,
	// or ErrUnknownProcedure.
	Execute(ctx context.Context, proc Procedure, key string, args ...any) (Result, error)

	// Close releases any resources held by the store.
	Close() error
}

// Result is the small typed tuple a procedure returns. Values arrive as
// int64, float64, or numeric strings depending on the backend's scripting
// conversion rules; accessors normalize them.
type Result []any

// Int64 returns the value at position i as an int64.
func (r Result) Int64(i int) int64 {
	if i >= len(r) {
		return 0
	}
	switch v := r[i].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Float64 returns the value at position i as a float64.
func (r Result) Float64(i int) float64 {
	if i >= len(r) {
		return 0
	}
	switch v := r[i].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Bool returns the value at position i, treating nonzero as true.
func (r Result) Bool(i int) bool {
	return r.Int64(i) != 0
}

// IsTransient reports whether err is a store-layer fault that a failure
// policy should absorb rather than propagate.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// DefaultTimeout bounds a single procedure execution. Deliberately short: a
// rate-limit check must not become the request's latency bottleneck.
const DefaultTimeout = 100 * time.Millisecond
