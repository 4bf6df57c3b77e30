package ratekit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nhalm/ratekit/store"
	"github.com/nhalm/ratekit/tier"
)

// SlidingWindowLog keeps a log of request timestamps per key and admits a
// request only while fewer than Limit entries fall inside the trailing
// window. Expiry, count, and conditional append happen in one atomic
// procedure, so the trailing-window bound holds at every instant and the
// fixed-window boundary burst cannot occur.
type SlidingWindowLog struct {
	Store store.Store

	// NewID produces unique log entry IDs so that same-instant requests from
	// different processes stay distinct entries. Defaults to UUIDs.
	NewID func() string
}

// Evaluate runs the log procedure and decides.
func (sw *SlidingWindowLog) Evaluate(ctx context.Context, key string, t tier.Tier, now time.Time) (Decision, error) {
	newID := sw.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	res, err := sw.Store.Execute(ctx, store.ProcSlidingWindowLog, key,
		now.UnixMicro(), t.Window.Microseconds(), t.Limit, newID())
	if err != nil {
		return Decision{}, err
	}

	admitted := res.Bool(0)
	countAfter := res.Int64(1)
	oldestMicros := res.Int64(2)

	// The window next has capacity when the oldest surviving entry ages out.
	resetAt := now.Add(t.Window)
	if oldestMicros > 0 {
		resetAt = time.UnixMicro(oldestMicros).Add(t.Window)
	}

	d := Decision{
		Allowed:   admitted,
		Limit:     t.Limit,
		Remaining: t.Limit - countAfter,
		ResetAt:   resetAt,
	}
	if !admitted {
		d.RetryAfter = resetAt.Sub(now)
	}
	return d.clamp(now), nil
}
