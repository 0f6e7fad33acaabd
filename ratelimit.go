package mlapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate    float64                                      // requests per second
	Burst   int                                          // max burst
	KeyFunc func(r *http.Request) string                 // default: remote IP
	OnLimit func(w http.ResponseWriter, r *http.Request) // default: 429 problem detail
	MaxIdle time.Duration                                // forget clients idle longer than this (default: 5m)
}

// RateLimit returns middleware that applies a token bucket per client key.
// A non-positive Rate or Burst disables limiting.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Rate <= 0 || cfg.Burst <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = remoteIP
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = func(w http.ResponseWriter, _ *http.Request) {
			writeErrorResponse(w, Error(http.StatusTooManyRequests, "rate limit exceeded"))
		}
	}

	limiters := newKeyedLimiter(rate.Limit(cfg.Rate), cfg.Burst, cfg.MaxIdle)
	retryAfter := strconv.FormatFloat(max(1, 1/cfg.Rate), 'f', 0, 64)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(cfg.KeyFunc(r), time.Now()) {
				w.Header().Set("Retry-After", retryAfter)
				cfg.OnLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// keyedLimiter holds one token bucket per key and evicts idle buckets
// every sweepEvery calls.
type keyedLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[string]*limiterEntry
	calls uint64
}

const sweepEvery = 512

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newKeyedLimiter(limit rate.Limit, burst int, idleTTL time.Duration) *keyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 5 * time.Minute
	}
	return &keyedLimiter{
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*limiterEntry),
	}
}

// allow reports whether one token can be taken for key at now. An empty
// key is never limited.
func (l *keyedLimiter) allow(key string, now time.Time) bool {
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.calls++
	if l.calls%sweepEvery == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}
	return allowed
}
