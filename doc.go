// Package ratekit is a distributed rate-limiting decision engine for APIs
// served by many stateless instances.
//
// A Limiter resolves each caller to a tier (a named quota profile), runs the
// tier's counting algorithm as an atomic procedure against a shared store,
// and returns an auditable Decision. Three algorithms are provided: fixed
// window, sliding window log, and token bucket. Coordination across
// instances happens exclusively through the store's per-key atomicity; no
// component ever reads-then-writes counting state non-atomically.
//
//	resolver, err := tier.Load("tiers.yaml")
//	st, err := store.NewRedis(store.RedisConfig{URL: "localhost:6379"})
//	limiter := ratekit.New(st, resolver)
//	defer limiter.Close()
//
//	d, err := limiter.Check(ctx, callerID, endpoint)
//
// HTTP services can mount the check as middleware instead:
//
//	mw := ratekit.NewMiddleware(limiter, ratekit.WithCallerFromHeader("X-API-Key"))
//	r.Use(mw.Handler)
//
// When the store is unreachable the configured FailurePolicy produces the
// decision: fail-open (the default) admits with a per-process fallback cap,
// fail-closed rejects until the store recovers. Either way Check stays a
// single short round trip — store calls carry a tight timeout and are never
// retried, so a degraded store slows admission decisions, not the API.
//
// For distributed deployments use the Redis store. The in-memory store is
// only suitable for single-instance deployments and development.
package ratekit
