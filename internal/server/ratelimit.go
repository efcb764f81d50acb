package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// ipLimiters hands out one token-bucket limiter per client IP so a noisy
// client cannot starve its neighbors.
type ipLimiters struct {
	mu      sync.Mutex
	perIP   map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	enabled bool
}

// connLimiter is the per-connection view of the shared per-IP limiter.
// A nil-bucket limiter (rate limiting disabled) always allows.
type connLimiter struct {
	bucket *rate.Limiter
}

func newIPLimiters(perSecond int) *ipLimiters {
	return &ipLimiters{
		perIP:   make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   perSecond,
		enabled: perSecond > 0,
	}
}

func (l *ipLimiters) get(ip string) *connLimiter {
	if !l.enabled {
		return &connLimiter{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.perIP[ip]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.perIP[ip] = b
	}
	return &connLimiter{bucket: b}
}

func (cl *connLimiter) allow() bool {
	return cl.bucket == nil || cl.bucket.Allow()
}
