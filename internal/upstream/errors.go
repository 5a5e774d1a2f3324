package upstream

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// Classified failures for outbound provider calls. Handlers and caches
// branch on these instead of inspecting raw transport errors.
var (
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnexpected   = errors.New("unexpected status code")
	ErrCircuitOpen  = errors.New("circuit breaker open")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// Transient reports whether err is a recoverable upstream failure:
// rate limiting, 5xx responses, an open circuit, timeouts, or plain
// connection failures. Transient failures are eligible for the
// serve-stale cache fallback; everything else is treated as permanent.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Transient(urlErr.Err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
