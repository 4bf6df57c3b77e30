package ratekit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Response header names for rate limit metadata.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// EncodeHeaders writes a decision's metadata into h.
// Reset is rendered as unix seconds; Retry-After (whole seconds, rounded up)
// is written only for rejected decisions.
func EncodeHeaders(h http.Header, d Decision) {
	h.Set(HeaderLimit, strconv.FormatInt(d.Limit, 10))
	h.Set(HeaderRemaining, strconv.FormatInt(d.Remaining, 10))
	h.Set(HeaderReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
	if !d.Allowed {
		secs := int64((d.RetryAfter + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		h.Set(HeaderRetryAfter, strconv.FormatInt(secs, 10))
	}
}

// ParseHeaders reads a decision's metadata back from h. The inverse of
// EncodeHeaders up to header precision: ResetAt carries whole seconds and
// Allowed is inferred from the presence of Retry-After.
func ParseHeaders(h http.Header) (Decision, error) {
	limit, err := strconv.ParseInt(h.Get(HeaderLimit), 10, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("invalid %s: %w", HeaderLimit, err)
	}
	remaining, err := strconv.ParseInt(h.Get(HeaderRemaining), 10, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("invalid %s: %w", HeaderRemaining, err)
	}
	reset, err := strconv.ParseInt(h.Get(HeaderReset), 10, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("invalid %s: %w", HeaderReset, err)
	}

	d := Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Unix(reset, 0),
	}

	if retry := h.Get(HeaderRetryAfter); retry != "" {
		secs, err := strconv.ParseInt(retry, 10, 64)
		if err != nil {
			return Decision{}, fmt.Errorf("invalid %s: %w", HeaderRetryAfter, err)
		}
		d.Allowed = false
		d.RetryAfter = time.Duration(secs) * time.Second
	}

	return d, nil
}
