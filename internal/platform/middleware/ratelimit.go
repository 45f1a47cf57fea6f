package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"credchain/pkg/platform/httputil"
	"credchain/pkg/requestcontext"
)

// ipLimiter keeps one token bucket per client IP. Buckets idle longer than
// the TTL are swept on the next lookup so the map stays bounded.
type ipLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int, ttl time.Duration) *ipLimiter {
	return &ipLimiter{
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *ipLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[key]
	if e == nil {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now

	for k, v := range l.entries {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.entries, k)
		}
	}

	return e.lim.Allow()
}

// RateLimitOption configures the rate limit middleware.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	disabled bool
	ttl      time.Duration
}

// WithRateLimitDisabled disables rate limiting entirely (for testing/demo mode).
func WithRateLimitDisabled(disabled bool) RateLimitOption {
	return func(c *rateLimitConfig) {
		c.disabled = disabled
	}
}

// WithBucketTTL overrides how long idle per-IP buckets are kept.
func WithBucketTTL(ttl time.Duration) RateLimitOption {
	return func(c *rateLimitConfig) {
		c.ttl = ttl
	}
}

// RateLimit rejects clients that exceed rps sustained requests per second
// with the given burst allowance, keyed by client IP. It runs ahead of
// every route, including the mining endpoints.
func RateLimit(rps float64, burst int, logger *slog.Logger, opts ...RateLimitOption) func(http.Handler) http.Handler {
	cfg := rateLimitConfig{ttl: time.Hour}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.disabled {
		logger.Info("rate limiting disabled")
	}

	limiter := newIPLimiter(rate.Limit(rps), burst, cfg.ttl)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = ClientIPFromRequest(r)
			}

			if !limiter.allow(ip) {
				logger.WarnContext(ctx, "rate limit exceeded",
					"client_ip", ip,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many requests from this IP address. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
