package datasource

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MultiRateLimiter keeps one token bucket per quote source
type MultiRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewMultiRateLimiter creates limiters lazily with the given default rate.
// rps <= 0 disables limiting.
func NewMultiRateLimiter(rps float64, burst int) *MultiRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MultiRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// AddLimiter overrides the rate for a specific source
func (m *MultiRateLimiter) AddLimiter(source string, rps float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[source] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (m *MultiRateLimiter) getLimiter(source string) *rate.Limiter {
	m.mu.RLock()
	limiter, ok := m.limiters[source]
	m.mu.RUnlock()
	if ok {
		return limiter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// re-check under the write lock
	if limiter, ok := m.limiters[source]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(m.rps), m.burst)
	m.limiters[source] = limiter
	return limiter
}

// Wait blocks until source may be called or ctx ends
func (m *MultiRateLimiter) Wait(ctx context.Context, source string) error {
	if m == nil || m.rps <= 0 {
		return ctx.Err()
	}
	return m.getLimiter(source).Wait(ctx)
}
