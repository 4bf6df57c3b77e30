package ratekit

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HeaderMode controls when rate limit headers are included in responses.
type HeaderMode int

const (
	// HeadersAlways includes rate limit headers on all responses (default).
	// Headers: X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset
	// On 429: Also includes Retry-After
	HeadersAlways HeaderMode = iota

	// HeadersOnLimitExceeded includes rate limit headers only on 429 responses.
	HeadersOnLimitExceeded

	// HeadersNever never includes rate limit headers in any response.
	// Use this when you want rate limiting without exposing limits to clients.
	HeadersNever
)

// CallerFunc extracts the caller identity from an HTTP request.
// Returning an empty string skips rate limiting for that request.
type CallerFunc func(*http.Request) string

// Middleware wraps handlers with a rate limit check against a Limiter.
type Middleware struct {
	limiter    *Limiter
	callerFn   CallerFunc
	headerMode HeaderMode
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithHeaderMode configures when rate limit headers are included in responses.
func WithHeaderMode(mode HeaderMode) MiddlewareOption {
	return func(m *Middleware) { m.headerMode = mode }
}

// WithCallerFromIP identifies callers by the client IP from RemoteAddr.
// Use this for direct connections without a proxy.
func WithCallerFromIP() MiddlewareOption {
	return func(m *Middleware) {
		m.callerFn = func(r *http.Request) string {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				return r.RemoteAddr
			}
			return ip
		}
	}
}

// WithCallerFromRealIP identifies callers by X-Forwarded-For or X-Real-IP.
// Use this when behind a proxy/load balancer.
//
// SECURITY: Only use this behind a trusted reverse proxy that sets these
// headers. Without a proxy, clients can spoof X-Forwarded-For to bypass
// rate limits.
func WithCallerFromRealIP() MiddlewareOption {
	return func(m *Middleware) {
		m.callerFn = func(r *http.Request) string {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return strings.TrimSpace(xff)
			}
			return strings.TrimSpace(r.Header.Get("X-Real-IP"))
		}
	}
}

// WithCallerFromHeader identifies callers by a header value, e.g. an API key.
// If the header is missing, rate limiting is skipped for that request.
func WithCallerFromHeader(header string) MiddlewareOption {
	return func(m *Middleware) {
		m.callerFn = func(r *http.Request) string {
			return r.Header.Get(header)
		}
	}
}

// WithCallerFunc identifies callers with custom extraction logic.
func WithCallerFunc(fn CallerFunc) MiddlewareOption {
	return func(m *Middleware) { m.callerFn = fn }
}

// NewMiddleware creates rate limiting middleware over a Limiter.
// Exactly one WithCallerFrom* option must be provided.
// Panics if no caller extraction is configured.
func NewMiddleware(l *Limiter, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		limiter:    l,
		headerMode: HeadersAlways,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.callerFn == nil {
		panic("ratekit: must configure a caller extraction option (WithCallerFromIP, WithCallerFromRealIP, WithCallerFromHeader, or WithCallerFunc)")
	}
	return m
}

// Handler returns the rate limiting middleware.
//
// The endpoint dimension is the method plus the chi route pattern when one is
// available, falling back to the raw URL path. Returns 429 when the limit is
// exceeded and 500 when tier resolution fails (a deployment bug, not a
// rate-limit rejection). Store outages never surface here; the limiter's
// failure policy already turned them into decisions.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := m.callerFn(r)
		if caller == "" {
			next.ServeHTTP(w, r)
			return
		}

		d, err := m.limiter.Check(r.Context(), caller, endpointOf(r))
		if err != nil {
			http.Error(w, "Rate limit configuration error", http.StatusInternalServerError)
			return
		}

		if m.headerMode == HeadersAlways || (m.headerMode == HeadersOnLimitExceeded && !d.Allowed) {
			EncodeHeaders(w.Header(), d)
		}

		if !d.Allowed {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func endpointOf(r *http.Request) string {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			path = pattern
		}
	}

	var sb strings.Builder
	sb.Grow(len(r.Method) + 1 + len(path))
	sb.WriteString(r.Method)
	sb.WriteByte(':')
	sb.WriteString(path)
	return sb.String()
}
