package ratekit

import (
	"github.com/nhalm/ratekit/tier"
)

// Configuration defects surface from Check as errors; store-layer faults
// never do — the failure policy converts those into decisions.
//
// ErrUnknownTier and ErrMisconfigured are re-exported so callers matching
// with errors.Is need only this package.
var (
	ErrUnknownTier   = tier.ErrUnknownTier
	ErrMisconfigured = tier.ErrMisconfigured
)
