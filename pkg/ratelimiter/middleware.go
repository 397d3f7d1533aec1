package ratelimiter

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/spool/pkg/logger"
)

// KeyFunc extracts the bucket key from a request. An empty key skips
// limiting.
type KeyFunc func(r *http.Request) string

// HashKey wraps fn so raw credentials never become storage keys.
func HashKey(fn KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		k := fn(r)
		if k == "" {
			return ""
		}
		sum := sha256.Sum256([]byte(k))
		return hex.EncodeToString(sum[:8])
	}
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middleware)

// WithRejectHandler replaces the plain-text 429 response.
func WithRejectHandler(h http.Handler) MiddlewareOption {
	return func(m *middleware) {
		if h != nil {
			m.reject = h
		}
	}
}

// WithMiddlewareLogger logs store failures. Requests pass when the store is
// unavailable.
func WithMiddlewareLogger(l *slog.Logger) MiddlewareOption {
	return func(m *middleware) {
		if l != nil {
			m.logger = l
		}
	}
}

type middleware struct {
	limiter Limiter
	key     KeyFunc
	reject  http.Handler
	logger  *slog.Logger
	now     func() time.Time
}

// Middleware limits requests per key.
func Middleware(limiter Limiter, key KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	m := &middleware{
		limiter: limiter,
		key:     key,
		logger:  slog.Default(),
		now:     time.Now,
		reject: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		}),
	}
	for _, opt := range opts {
		opt(m)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := m.key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := m.limiter.Allow(r.Context(), k)
			if err != nil {
				m.logger.WarnContext(r.Context(), "rate limit store failed, request allowed",
					logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				wait := math.Ceil(res.RetryAfter(m.now()).Seconds())
				h.Set("Retry-After", strconv.Itoa(max(int(wait), 1)))
				m.reject.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
