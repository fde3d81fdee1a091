package openai

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the proactive throttle rate.
	DefaultRequestsPerSecond = 5.0

	// HeaderRemainingRequests is the remaining requests header.
	HeaderRemainingRequests = "X-Ratelimit-Remaining-Requests"

	// HeaderResetRequests is the time until the request quota resets, as a
	// Go-style duration such as "1s" or "6m0s".
	HeaderResetRequests = "X-Ratelimit-Reset-Requests"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter throttles embedding requests with a token bucket and honours
// quota headers returned by the API.
type RateLimiter struct {
	mu        sync.Mutex
	bucket    *rate.Limiter
	blockedTo time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second.
// A non-positive rps disables proactive throttling.
func NewRateLimiter(rps float64) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimiter{bucket: rate.NewLimiter(limit, 1)}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	until := r.blockedTo
	r.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

// Observe records quota headers from a response.
func (r *RateLimiter) Observe(resp *http.Response) {
	if resp == nil {
		return
	}

	var wait time.Duration
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get(HeaderRetryAfter)); err == nil {
			wait = time.Duration(secs) * time.Second
		}
	}
	if resp.Header.Get(HeaderRemainingRequests) == "0" {
		if d, err := time.ParseDuration(resp.Header.Get(HeaderResetRequests)); err == nil && d > wait {
			wait = d
		}
	}
	if wait <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(wait); until.After(r.blockedTo) {
		r.blockedTo = until
	}
}
