package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a best-effort, instance-local token bucket. Durable state
// (the ledger, orders, stock) never lives here; this only shields the
// outward-facing endpoints from bursts.
type RateLimiter struct {
	store *sync.Map // map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	// Needed to know when the bucket can be cleaned up.
	lastAccess time.Time
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		store: &sync.Map{},
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.store.Range(func(key, value interface{}) bool {
			b := value.(*bucket)
			b.mu.Lock()
			if now.Sub(b.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			b.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	// Refill at limit/60 tokens per second.
	elapsed := now.Sub(b.lastRefill)
	refillRate := float64(limit) / 60.0
	refillTokens := int(elapsed.Seconds() * refillRate)

	if refillTokens > 0 {
		if b.tokens+refillTokens > limit {
			b.tokens = limit
		} else {
			b.tokens += refillTokens
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Limit wraps a handler with a per-client-IP budget of limit requests per
// minute.
func (rl *RateLimiter) Limit(limitType string, limit int) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf("%s:%s", ip, limitType)

			if limit <= 0 {
				limit = 100
			}

			if !rl.Allow(key, limit) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}
