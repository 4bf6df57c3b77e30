package ratekit

import (
	"context"
	"fmt"
	"time"

	"github.com/nhalm/ratekit/store"
	"github.com/nhalm/ratekit/tier"
)

// Algorithm evaluates one rate limit check against the shared store.
//
// Implementations must let store errors propagate untouched; only the
// Limiter facade is permitted to absorb them.
type Algorithm interface {
	Evaluate(ctx context.Context, key string, t tier.Tier, now time.Time) (Decision, error)
}

// algorithms binds each tier algorithm name to its implementation.
func algorithms(st store.Store, newID func() string) map[tier.Algorithm]Algorithm {
	return map[tier.Algorithm]Algorithm{
		tier.FixedWindow:      &FixedWindow{Store: st},
		tier.SlidingWindowLog: &SlidingWindowLog{Store: st, NewID: newID},
		tier.TokenBucket:      &TokenBucket{Store: st},
	}
}

func algorithmFor(algs map[tier.Algorithm]Algorithm, t tier.Tier) (Algorithm, error) {
	alg, ok := algs[t.Algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: tier %q uses unsupported algorithm %q", ErrMisconfigured, t.Name, t.Algorithm)
	}
	return alg, nil
}
