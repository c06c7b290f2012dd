package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type limiterSet[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
	rps     float64
	burst   int
}

func newLimiterSet[K comparable](ctx context.Context, rps float64, burst int) *limiterSet[K] {
	ls := &limiterSet[K]{
		entries: make(map[K]*entry),
		rps:     rps,
		burst:   burst,
	}

	// Background cleanup of stale limiters.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ls.mu.Lock()
				cutoff := time.Now().Add(-30 * time.Minute)
				for k, e := range ls.entries {
					if e.lastAccess.Before(cutoff) {
						delete(ls.entries, k)
					}
				}
				ls.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return ls
}

func (ls *limiterSet[K]) limiterFor(key K) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	e, ok := ls.entries[key]
	if !ok {
		e = &entry{
			limiter:    rate.NewLimiter(rate.Limit(ls.rps), ls.burst),
			lastAccess: time.Now(),
		}
		ls.entries[key] = e
	} else {
		e.lastAccess = time.Now()
	}
	return e.limiter
}

// RateLimitByIP applies per-IP rate limiting for unauthenticated endpoints
// (the auth routes). Relies on chi's RealIP middleware having normalized
// r.RemoteAddr.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	ls := newLimiterSet[string](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ls.limiterFor(r.RemoteAddr).Allow() {
				tooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByUser applies per-user rate limiting on authenticated routes.
// Requests without a user in context pass through; Auth runs first and
// already rejected them.
func RateLimitByUser(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	ls := newLimiterSet[uuid.UUID](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !ls.limiterFor(userID).Allow() {
				tooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter) {
	http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
}
