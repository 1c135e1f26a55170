package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// HostRateLimiter enforces a minimum gap between navigations to the same host.
// Concurrent callers reserve consecutive slots, so N waiters on one host are
// spread N gaps apart instead of all waking together.
type HostRateLimiter struct {
	mu        sync.Mutex
	nextSlot  map[string]time.Time // key: host
	minDelay  time.Duration
	overrides map[string]time.Duration
	now       func() time.Time
}

// NewHostRateLimiter creates a limiter with minDelay between consecutive
// navigations to the same host. overrides may be nil.
func NewHostRateLimiter(minDelay time.Duration, overrides map[string]time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		nextSlot:  make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
		now:       time.Now,
	}
}

func (r *HostRateLimiter) delayFor(host string) time.Duration {
	if d, ok := r.overrides[host]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until the caller's slot for host arrives.
// Returns an error if the context is cancelled while waiting.
func (r *HostRateLimiter) Wait(ctx context.Context, host string) error {
	r.mu.Lock()
	now := r.now()
	slot := now
	if next, ok := r.nextSlot[host]; ok && next.After(now) {
		slot = next
	}
	r.nextSlot[host] = slot.Add(r.delayFor(host))
	r.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-t.C:
		return nil
	}
}

// WaitURL is Wait keyed by the host of rawURL.
func (r *HostRateLimiter) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("rate limiter: parse %q: %w", rawURL, err)
	}
	return r.Wait(ctx, u.Host)
}
