package ratekit

import "time"

// Decision is the auditable outcome of a rate limit check.
//
// Invariants: 0 <= Remaining <= Limit, ResetAt is never before the decision
// time, and a rejected decision carries RetryAfter > 0.
type Decision struct {
	// Allowed reports whether the request should be admitted.
	Allowed bool

	// Limit is the quota ceiling for the governing tier.
	Limit int64

	// Remaining is how many requests are still admissible.
	Remaining int64

	// ResetAt is when the window next has capacity.
	ResetAt time.Time

	// RetryAfter is how long to wait before retrying. Meaningful only when
	// the request was rejected.
	RetryAfter time.Duration
}

// clamp enforces the decision invariants relative to now.
func (d Decision) clamp(now time.Time) Decision {
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if d.Remaining > d.Limit {
		d.Remaining = d.Limit
	}
	if d.ResetAt.Before(now) {
		d.ResetAt = now
	}
	if !d.Allowed && d.RetryAfter <= 0 {
		d.RetryAfter = time.Second
	}
	if d.Allowed {
		d.RetryAfter = 0
	}
	return d
}
