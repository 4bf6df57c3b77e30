package events

import (
	"context"
	"fmt"

	"github.com/nhalm/canonlog"
)

// Canonlog adds events to the request's canonical log line.
// Events land on the canonlog logger carried by the request context, so they
// appear in the same line the HTTP layer flushes. Outside an instrumented
// request the emitter is a no-op.
type Canonlog struct{}

func (Canonlog) Decision(ctx context.Context, tier, endpoint string, outcome Outcome) {
	if _, ok := canonlog.TryGetLogger(ctx); !ok {
		return
	}
	canonlog.InfoAddMany(ctx, map[string]any{
		"ratelimit_tier":     tier,
		"ratelimit_endpoint": endpoint,
		"ratelimit_outcome":  string(outcome),
	})
}

func (Canonlog) StoreFailure(ctx context.Context, tier, endpoint, mode, instanceID string, err error) {
	if _, ok := canonlog.TryGetLogger(ctx); !ok {
		return
	}
	canonlog.InfoAddMany(ctx, map[string]any{
		"ratelimit_tier":        tier,
		"ratelimit_endpoint":    endpoint,
		"ratelimit_mode":        mode,
		"ratelimit_instance_id": instanceID,
	})
	canonlog.ErrorAdd(ctx, fmt.Errorf("rate limit store unavailable, %s applied: %w", mode, err))
}
