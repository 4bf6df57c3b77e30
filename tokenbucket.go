package ratekit

import (
	"context"
	"math"
	"time"

	"github.com/nhalm/ratekit/store"
	"github.com/nhalm/ratekit/tier"
)

// TokenBucket refills tokens continuously at the tier's RefillRate up to
// Capacity; each admitted request consumes one token. The refill-and-consume
// cycle is one atomic procedure, and the state is persisted whether or not
// the request was admitted so elapsed time is never double-counted or lost.
//
// The only algorithm of the three that treats burst tolerance as a tunable
// property: a caller can burst up to Capacity while the long-run rate stays
// at RefillRate per second.
type TokenBucket struct {
	Store store.Store
}

// Evaluate runs the bucket procedure and decides.
func (tb *TokenBucket) Evaluate(ctx context.Context, key string, t tier.Tier, now time.Time) (Decision, error) {
	nowSeconds := float64(now.UnixMicro()) / 1e6
	ttl := t.Window.Milliseconds()

	res, err := tb.Store.Execute(ctx, store.ProcTokenBucket, key,
		t.Capacity, t.RefillRate, nowSeconds, ttl)
	if err != nil {
		return Decision{}, err
	}

	admitted := res.Bool(0)
	tokens := res.Float64(1)

	d := Decision{
		Allowed:   admitted,
		Limit:     t.Capacity,
		Remaining: int64(math.Floor(tokens)),
	}

	if tokens >= 1 {
		d.ResetAt = now
	} else {
		// Time until one more whole token is available.
		wait := time.Duration((1 - tokens) / t.RefillRate * float64(time.Second))
		d.ResetAt = now.Add(wait)
		if !admitted {
			d.RetryAfter = wait
		}
	}
	return d.clamp(now), nil
}
