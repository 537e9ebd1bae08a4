package checker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/beefsack/go-rate"
)

// hostLimiter hands out a token bucket per endpoint host so a batch spread
// over many registries still keeps a polite budget against each one.
type hostLimiter struct {
	mu    sync.Mutex
	count int
	every time.Duration
	hosts map[string]*rate.RateLimiter
}

func newHostLimiter(count int, every time.Duration) *hostLimiter {
	return &hostLimiter{
		count: count,
		every: every,
		hosts: map[string]*rate.RateLimiter{},
	}
}

func (l *hostLimiter) limiterFor(endpoint string) *rate.RateLimiter {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rl, ok := l.hosts[host]
	if !ok {
		rl = rate.New(l.count, l.every)
		l.hosts[host] = rl
	}
	return rl
}

// wait blocks until the endpoint's budget allows another request or ctx is
// done.
func (l *hostLimiter) wait(ctx context.Context, endpoint string) error {
	rl := l.limiterFor(endpoint)
	for {
		ok, remaining := rl.Try()
		if ok {
			return nil
		}
		if remaining <= 0 {
			remaining = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}
}
