package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig tunes per-IP token-bucket limiting.
type RateLimitConfig struct {
	// Rate is the sustained requests/second allowed per IP.
	Rate rate.Limit
	// Burst is the bucket size per IP.
	Burst int
	// CleanupInterval is how often idle buckets are swept.
	CleanupInterval time.Duration
	// MaxAge is how long an idle bucket survives before eviction.
	MaxAge time.Duration
}

// DefaultRateLimitConfig covers the general API surface: 20 req/s
// sustained with a burst of 40.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:            rate.Limit(20),
		Burst:           40,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// AuthRateLimitConfig is the tighter budget for credential endpoints,
// 5 req/s with a burst of 10, to slow password guessing.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:            rate.Limit(5),
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// ipBucket pairs a token bucket with its last-use time for eviction.
type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP and evicts buckets
// that have gone quiet.
type IPRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipBucket
	cfg     RateLimitConfig
	stopCh  chan struct{}
}

// NewIPRateLimiter starts a limiter with a background sweep goroutine.
// Call Stop when the server shuts down.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		entries: make(map[string]*ipBucket),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow reports whether the given IP has budget for one more request.
func (rl *IPRateLimiter) Allow(ip string) bool {
	return rl.bucket(ip).Allow()
}

// bucket returns the IP's token bucket, creating it on first use.
func (rl *IPRateLimiter) bucket(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[ip]
	if !ok {
		entry = &ipBucket{limiter: rate.NewLimiter(rl.cfg.Rate, rl.cfg.Burst)}
		rl.entries[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Stop ends the background sweep goroutine.
func (rl *IPRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup evicts buckets idle for longer than MaxAge.
func (rl *IPRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.cfg.MaxAge)
	evicted := 0
	for ip, entry := range rl.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.entries, ip)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("rate limiter sweep", "evicted", evicted, "remaining", len(rl.entries))
	}
}

// RateLimit rejects over-budget requests with 429 and a Retry-After header
// before they reach the handler chain.
func RateLimit(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r)
			if !limiter.Allow(ip) {
				slog.Warn("rate limit exceeded",
					"ip", ip,
					"method", r.Method,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "1")
				writeAuthError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractIP strips the port from RemoteAddr. chi's RealIP middleware runs
// earlier and rewrites RemoteAddr from forwarding headers when the server
// sits behind a proxy.
func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
