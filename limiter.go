package ratekit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhalm/ratekit/events"
	"github.com/nhalm/ratekit/fallback"
	"github.com/nhalm/ratekit/store"
	"github.com/nhalm/ratekit/tier"
)

// Limiter is the rate-limiting decision engine: it resolves a caller's tier,
// runs the tier's algorithm against the shared store, and converts store
// outages into decisions via the failure policy.
type Limiter struct {
	store      store.Store
	resolver   tier.Resolver
	algs       map[tier.Algorithm]Algorithm
	policy     FailurePolicy
	fallback   *fallback.Store
	emitter    events.Emitter
	clock      func() time.Time
	instanceID string
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithFailurePolicy sets the behavior under store outages.
// The default policy fails open with Remaining = limit/2.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(l *Limiter) { l.policy = p }
}

// WithEmitter sets the observability event emitter. Defaults to the canonlog
// emitter, which is a no-op outside instrumented requests.
func WithEmitter(e events.Emitter) Option {
	return func(l *Limiter) { l.emitter = e }
}

// WithClock injects the time source. For deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.clock = now }
}

// New creates a Limiter over the given store and tier resolver.
func New(st store.Store, resolver tier.Resolver, opts ...Option) *Limiter {
	l := &Limiter{
		store:      st,
		resolver:   resolver,
		algs:       algorithms(st, nil),
		fallback:   fallback.New(),
		emitter:    events.Canonlog{},
		clock:      time.Now,
		instanceID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check decides whether a request from callerID against endpoint should be
// admitted.
//
// Configuration defects (unknown tier, misconfigured algorithm) return an
// error; store-layer faults never do — the failure policy produces the
// decision instead, so a degraded store cannot take the protected API down
// with it. Check performs a single store round trip with no retries.
func (l *Limiter) Check(ctx context.Context, callerID, endpoint string) (Decision, error) {
	t, err := l.resolver.Resolve(callerID, endpoint)
	if err != nil {
		return Decision{}, err
	}

	alg, err := algorithmFor(l.algs, t)
	if err != nil {
		return Decision{}, err
	}

	now := l.clock()
	key := windowKey(t, callerID, endpoint)

	d, err := alg.Evaluate(ctx, key, t, now)
	if err != nil {
		if !store.IsTransient(err) {
			return Decision{}, err
		}
		d = l.degraded(ctx, key, t, endpoint, now, err)
		l.emitDecision(ctx, t.Name, endpoint, d)
		return d, nil
	}

	l.emitDecision(ctx, t.Name, endpoint, d)
	return d, nil
}

// degraded produces the decision while the store is unreachable.
func (l *Limiter) degraded(ctx context.Context, key string, t tier.Tier, endpoint string, now time.Time, cause error) Decision {
	l.emitter.StoreFailure(ctx, t.Name, endpoint, l.policy.Mode.String(), l.instanceID, cause)

	limit := t.Limit
	if t.Algorithm == tier.TokenBucket {
		limit = t.Capacity
	}

	if l.policy.Mode == FailClosed {
		retry := l.policy.closedRetryAfter()
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    now.Add(retry),
			RetryAfter: retry,
		}
	}

	// Fail open: the local bucket caps one caller's throughput against this
	// process while the fleet-wide count is unknowable.
	perSecond := float64(limit) / t.Window.Seconds()
	burst := limit
	if t.Algorithm == tier.TokenBucket {
		perSecond = t.RefillRate
		burst = t.Capacity
	}

	d := Decision{
		Allowed:   l.fallback.Allow(key, perSecond, burst),
		Limit:     limit,
		Remaining: l.policy.openRemaining(limit),
		ResetAt:   now.Add(t.Window),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(1 / perSecond * float64(time.Second))
	}
	return d.clamp(now)
}

func (l *Limiter) emitDecision(ctx context.Context, tierName, endpoint string, d Decision) {
	outcome := events.OutcomeAllowed
	if !d.Allowed {
		outcome = events.OutcomeRejected
	}
	l.emitter.Decision(ctx, tierName, endpoint, outcome)
}

// Close releases the limiter's local resources. The store is owned by the
// caller and is not closed here.
func (l *Limiter) Close() {
	l.fallback.Close()
}

// windowKey is the unit of isolation: tier, endpoint, and caller. Two
// endpoints for the same caller never share a counter unless the tier is
// configured shared-across-endpoints.
func windowKey(t tier.Tier, callerID, endpoint string) string {
	var sb strings.Builder
	sb.Grow(len(t.Name) + len(endpoint) + len(callerID) + 2)
	sb.WriteString(t.Name)
	if !t.SharedAcrossEndpoints {
		sb.WriteByte(':')
		sb.WriteString(endpoint)
	}
	sb.WriteByte(':')
	sb.WriteString(callerID)
	return sb.String()
}
