package middleware

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trustify/trustify/pkg/logger"
)

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active
	Enabled bool
	// RequestsPerSecond is the allowed requests per second per IP
	RequestsPerSecond float64
	// BurstSize is the maximum burst size
	BurstSize int
	// CleanupInterval is how often to clean up old entries
	CleanupInterval time.Duration
	// RouteLimits overrides RequestsPerSecond/BurstSize for requests
	// whose path has the given prefix. The longest matching prefix
	// wins; a request matching none uses the top-level defaults.
	RouteLimits []RouteLimit
}

// RouteLimit gives one path prefix its own token bucket parameters.
// Ingest and importer force-runs (spec.md §4.2/§4.6) parse documents
// and write to the graph store per request, so they're budgeted far
// below the read-only query routes under /api/v2.
type RouteLimit struct {
	Prefix            string
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 100, // 100 requests per second
		BurstSize:         200, // Allow bursts up to 200
		CleanupInterval:   time.Minute,
		RouteLimits: []RouteLimit{
			{Prefix: "/api/v1/advisory", RequestsPerSecond: 2, BurstSize: 5},
			{Prefix: "/api/v1/importer", RequestsPerSecond: 2, BurstSize: 5},
		},
	}
}

// tokenBucket implements a simple token bucket rate limiter.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// rateLimiter stores per-(route class, IP) buckets. A route class is
// the longest RouteLimit prefix matching a request's path, or "" for
// the top-level default; each class gets its own rate/burst and its
// own independent buckets per IP.
type rateLimiter struct {
	buckets      map[string]*tokenBucket
	mu           sync.RWMutex
	defaultRate  float64
	defaultBurst int
	routes       []RouteLimit // sorted longest-prefix-first
	log          *logger.Logger
	stopChan     chan struct{}
}

// newRateLimiter creates a new rate limiter.
func newRateLimiter(cfg RateLimitConfig, log *logger.Logger) *rateLimiter {
	routes := append([]RouteLimit(nil), cfg.RouteLimits...)
	sort.Slice(routes, func(i, j int) bool { return len(routes[i].Prefix) > len(routes[j].Prefix) })

	rl := &rateLimiter{
		buckets:      make(map[string]*tokenBucket),
		defaultRate:  cfg.RequestsPerSecond,
		defaultBurst: cfg.BurstSize,
		routes:       routes,
		log:          log.WithComponent("rate-limiter"),
		stopChan:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup(cfg.CleanupInterval)

	return rl
}

// limitFor resolves the rate/burst for path via its longest matching
// RouteLimit prefix, and a bucket key that keeps route classes from
// sharing a budget.
func (rl *rateLimiter) limitFor(path string) (key string, rate float64, burst int) {
	for _, route := range rl.routes {
		if strings.HasPrefix(path, route.Prefix) {
			return route.Prefix, route.RequestsPerSecond, route.BurstSize
		}
	}
	return "", rl.defaultRate, rl.defaultBurst
}

// allow checks if a request from the given IP to path is allowed.
func (rl *rateLimiter) allow(ip, path string) bool {
	routeKey, rate, burst := rl.limitFor(path)
	bucketKey := routeKey + "|" + ip

	rl.mu.Lock()
	bucket, exists := rl.buckets[bucketKey]
	if !exists {
		bucket = &tokenBucket{
			tokens:     float64(burst),
			lastRefill: time.Now(),
		}
		rl.buckets[bucketKey] = bucket
	}
	rl.mu.Unlock()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.lastRefill = now

	// Refill tokens based on elapsed time
	bucket.tokens += elapsed * rate
	if bucket.tokens > float64(burst) {
		bucket.tokens = float64(burst)
	}

	// Check if we have tokens available
	if bucket.tokens < 1 {
		return false
	}

	bucket.tokens--
	return true
}

// cleanup removes old entries periodically.
func (rl *rateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, bucket := range rl.buckets {
				bucket.mu.Lock()
				// Remove entries that haven't been accessed in 5 minutes
				if now.Sub(bucket.lastRefill) > 5*time.Minute {
					delete(rl.buckets, key)
				}
				bucket.mu.Unlock()
			}
			rl.mu.Unlock()
		case <-rl.stopChan:
			return
		}
	}
}

// stop stops the cleanup goroutine.
func (rl *rateLimiter) stop() {
	close(rl.stopChan)
}

// RateLimit returns a middleware that limits requests per IP.
func RateLimit(cfg RateLimitConfig, log *logger.Logger) func(next http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	rl := newRateLimiter(cfg, log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get client IP
			ip := getClientIP(r)

			if !rl.allow(ip, r.URL.Path) {
				rl.log.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by proxies/load balancers)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP in the chain
		ips := splitCSV(xff)
		if len(ips) > 0 {
			return ips[0]
		}
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	// RemoteAddr is in the format "IP:port"
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}

// splitCSV splits a comma-separated string and trims whitespace.
func splitCSV(s string) []string {
	var result []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			part := s[start:i]
			// Trim whitespace
			for len(part) > 0 && part[0] == ' ' {
				part = part[1:]
			}
			for len(part) > 0 && part[len(part)-1] == ' ' {
				part = part[:len(part)-1]
			}
			if len(part) > 0 {
				result = append(result, part)
			}
			start = i + 1
		}
	}
	return result
}
