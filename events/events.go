// Package events defines the observability events the decision engine emits.
//
// The engine reports three events: a decision that allowed a request, a
// decision that rejected one, and a store failure handled by the failure
// policy. The engine owns neither transport nor storage for these events;
// emitters adapt them to whatever the deployment collects. Emitters must be
// safe for concurrent use.
package events

import "context"

// Outcome labels a decision event.
type Outcome string

const (
	OutcomeAllowed  Outcome = "allowed"
	OutcomeRejected Outcome = "rejected"
)

// Emitter receives structured events from the decision engine.
type Emitter interface {
	// Decision reports an admission decision for a tier and endpoint.
	Decision(ctx context.Context, tier, endpoint string, outcome Outcome)

	// StoreFailure reports that the shared store was unreachable and the
	// failure policy produced the decision instead. mode is "fail_open" or
	// "fail_closed"; instanceID identifies the degraded process.
	StoreFailure(ctx context.Context, tier, endpoint, mode, instanceID string, err error)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Decision(context.Context, string, string, Outcome) {}

func (Noop) StoreFailure(context.Context, string, string, string, string, error) {}

// Multi fans events out to several emitters.
type Multi []Emitter

func (m Multi) Decision(ctx context.Context, tier, endpoint string, outcome Outcome) {
	for _, e := range m {
		e.Decision(ctx, tier, endpoint, outcome)
	}
}

func (m Multi) StoreFailure(ctx context.Context, tier, endpoint, mode, instanceID string, err error) {
	for _, e := range m {
		e.StoreFailure(ctx, tier, endpoint, mode, instanceID, err)
	}
}
