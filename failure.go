package ratekit

import "time"

// FailureMode selects the behavior when the shared store is unreachable.
// Configured per deployment, never per request.
type FailureMode int

const (
	// FailOpen admits requests while the store is down, with a conservative
	// Remaining and a per-process fallback counter so a single caller cannot
	// achieve unlimited throughput against one instance. Enforcement
	// accuracy degrades from fleet-wide to per-instance.
	FailOpen FailureMode = iota

	// FailClosed rejects requests while the store is down, trading
	// availability for strict quota enforcement.
	FailClosed
)

// String returns the event tag for the mode.
func (m FailureMode) String() string {
	if m == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// FailurePolicy converts store outages into valid decisions.
type FailurePolicy struct {
	Mode FailureMode

	// OpenRemaining computes the Remaining reported under fail-open. The
	// true count is unknowable with the store down, so a deployment picks
	// the constant it wants to advertise. Defaults to limit/2.
	OpenRemaining func(limit int64) int64

	// ClosedRetryAfter is the retry hint under fail-closed.
	// Defaults to 1s: long enough to shed load, short enough that clients
	// probe again soon after the store recovers.
	ClosedRetryAfter time.Duration
}

func (p FailurePolicy) openRemaining(limit int64) int64 {
	if p.OpenRemaining != nil {
		return p.OpenRemaining(limit)
	}
	return limit / 2
}

func (p FailurePolicy) closedRetryAfter() time.Duration {
	if p.ClosedRetryAfter > 0 {
		return p.ClosedRetryAfter
	}
	return time.Second
}
