package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	visitorTTL      = 3 * time.Minute
	visitorSweep    = time.Minute
	rateLimitedBody = "Too many requests"
)

// RateLimiter provides per-IP token buckets. Idle visitors are evicted
// after visitorTTL.
type RateLimiter struct {
	visitors *cache.Cache
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter.
// r is requests per second, b is burst size.
func NewRateLimiter(r float64, b int) *RateLimiter {
	return &RateLimiter{
		visitors: cache.New(visitorTTL, visitorSweep),
		rate:     rate.Limit(r),
		burst:    b,
	}
}

// getVisitor returns the rate limiter for an IP, creating one if needed.
func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, found := rl.visitors.Get(ip)
	if !found {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
	}
	// Refresh the expiry on every hit.
	rl.visitors.Set(ip, limiter, cache.DefaultExpiration)
	return limiter.(*rate.Limiter)
}

// Visitors returns the number of tracked IPs.
func (rl *RateLimiter) Visitors() int {
	return rl.visitors.ItemCount()
}

// Limit is middleware that rate limits requests by IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := rl.getVisitor(getIP(r))

		if !limiter.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			http.Error(w, rateLimitedBody, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfter is the whole number of seconds until one more token is
// available, at least 1.
func (rl *RateLimiter) retryAfter() int {
	if rl.rate <= 0 || rl.rate == rate.Inf {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(rl.rate))))
}

// LimitStrict guards trade submission: 1 request per 2 seconds, burst 3.
func LimitStrict(next http.Handler) http.Handler {
	limiter := NewRateLimiter(0.5, 3)
	return limiter.Limit(next)
}

// LimitAuth guards login and registration: 1 request per second, burst 5.
func LimitAuth(next http.Handler) http.Handler {
	limiter := NewRateLimiter(1, 5)
	return limiter.Limit(next)
}

// LimitAPI guards the JSON endpoints: 10 requests per second, burst 20.
func LimitAPI(next http.Handler) http.Handler {
	limiter := NewRateLimiter(10, 20)
	return limiter.Limit(next)
}

// getIP extracts the client IP from the request.
func getIP(r *http.Request) string {
	// Only the first X-Forwarded-For entry is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	// Without proxy headers, every connection of a client shares a bucket.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
