package ratekit

import (
	"context"
	"strconv"
	"time"

	"github.com/nhalm/ratekit/store"
	"github.com/nhalm/ratekit/tier"
)

// FixedWindow counts requests in non-overlapping windows of the tier's
// Window length. The counter and its TTL are managed by one atomic procedure.
//
// Up to 2x the limit can be admitted across a window boundary (a full quota
// just before the boundary and another just after). That is a documented
// property of the algorithm; tiers that cannot tolerate it should use the
// sliding window log instead.
type FixedWindow struct {
	Store store.Store
}

// Evaluate increments the counter for the current window and decides.
func (fw *FixedWindow) Evaluate(ctx context.Context, key string, t tier.Tier, now time.Time) (Decision, error) {
	windowID := now.UnixNano() / int64(t.Window)
	windowKey := key + ":" + strconv.FormatInt(windowID, 10)

	res, err := fw.Store.Execute(ctx, store.ProcFixedWindow, windowKey, t.Window.Milliseconds())
	if err != nil {
		return Decision{}, err
	}

	count := res.Int64(0)
	windowStart := time.Unix(0, windowID*int64(t.Window))
	resetAt := windowStart.Add(t.Window)

	d := Decision{
		Allowed:   count <= t.Limit,
		Limit:     t.Limit,
		Remaining: t.Limit - count,
		ResetAt:   resetAt,
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
	}
	return d.clamp(now), nil
}
