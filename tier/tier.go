// Package tier defines quota profiles and the resolution of callers to them.
//
// A tier names a quota profile (limit, window, and for token buckets a
// capacity and refill rate) together with the counting algorithm that
// enforces it. Tier tables are loaded from YAML and validated at load time;
// a tier that references parameters its algorithm does not support is a
// configuration defect, detected here rather than per request.
package tier

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Algorithm selects the counting strategy bound to a tier.
type Algorithm string

const (
	FixedWindow      Algorithm = "fixed_window"
	SlidingWindowLog Algorithm = "sliding_window_log"
	TokenBucket      Algorithm = "token_bucket"
)

var (
	// ErrUnknownTier indicates a caller has no assigned tier. This is a
	// configuration error, not a rate-limit rejection.
	ErrUnknownTier = errors.New("unknown tier")

	// ErrMisconfigured indicates a tier references parameters its algorithm
	// does not support, or is missing required ones.
	ErrMisconfigured = errors.New("tier misconfigured")
)

// Tier is a named quota profile.
type Tier struct {
	Name      string        `yaml:"name" validate:"required"`
	Algorithm Algorithm     `yaml:"algorithm" validate:"required,oneof=fixed_window sliding_window_log token_bucket"`
	Limit     int64         `yaml:"limit" validate:"required,gt=0"`
	Window    time.Duration `yaml:"window" validate:"required,gt=0"`

	// Capacity and RefillRate apply to token bucket tiers only.
	Capacity   int64   `yaml:"capacity,omitempty"`
	RefillRate float64 `yaml:"refill_rate,omitempty"`

	// SharedAcrossEndpoints makes all endpoints for a caller share one
	// counter. Default is one counter per (caller, endpoint) pair.
	SharedAcrossEndpoints bool `yaml:"shared_across_endpoints,omitempty"`
}

var validate = validator.New()

// Validate checks structural and cross-field constraints.
// Errors wrap ErrMisconfigured.
func (t Tier) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: tier %q: %v", ErrMisconfigured, t.Name, err)
	}

	switch t.Algorithm {
	case TokenBucket:
		if t.Capacity <= 0 {
			return fmt.Errorf("%w: tier %q: token bucket requires capacity > 0", ErrMisconfigured, t.Name)
		}
		if t.RefillRate <= 0 {
			return fmt.Errorf("%w: tier %q: token bucket requires refill_rate > 0", ErrMisconfigured, t.Name)
		}
	default:
		if t.Capacity != 0 || t.RefillRate != 0 {
			return fmt.Errorf("%w: tier %q: capacity/refill_rate only apply to token bucket tiers", ErrMisconfigured, t.Name)
		}
	}
	return nil
}
