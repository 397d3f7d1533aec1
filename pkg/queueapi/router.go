package queueapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/spool/pkg/logger"
	"github.com/dmitrymomot/spool/pkg/queue"
	"github.com/dmitrymomot/spool/pkg/ratelimiter"
	"github.com/dmitrymomot/spool/pkg/spool"
)

// Service is the queue surface the routes need. *queue.Queue implements it.
type Service interface {
	Add(ctx context.Context, taskType, id string, opts ...queue.EnqueueOption) (spool.Task, error)
	EnqueueBatch(ctx context.Context, items []queue.BatchItem) (int, error)
	Status(ctx context.Context) queue.Status
	ReleaseSlot(ctx context.Context, n int, force bool) (bool, error)
	ValidToken(ctx context.Context, tok string) bool
}

// Option configures the router.
type Option func(*api)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *api) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithReadiness adds a check to /health/ready. The closures of pkg/pg,
// pkg/redis and (*preflight.Checker).Run fit.
func WithReadiness(check func(context.Context) error) Option {
	return func(a *api) {
		if check != nil {
			a.ready = append(a.ready, check)
		}
	}
}

// WithRateLimit throttles token routes per producer token. Refused
// requests get 429 with Retry-After.
func WithRateLimit(l ratelimiter.Limiter) Option {
	return func(a *api) {
		a.limiter = l
	}
}

type api struct {
	svc     Service
	logger  *slog.Logger
	ready   []func(context.Context) error
	limiter ratelimiter.Limiter
}

// NewRouter returns the HTTP handler for svc.
func NewRouter(svc Service, opts ...Option) http.Handler {
	a := &api{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("queueapi"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", a.live)
	r.Get("/health/ready", a.readiness)
	r.Get("/status", a.status)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)
		if a.limiter != nil {
			r.Use(ratelimiter.Middleware(a.limiter, ratelimiter.HashKey(bearerToken),
				ratelimiter.WithRejectHandler(http.HandlerFunc(a.limited)),
				ratelimiter.WithMiddlewareLogger(a.logger),
			))
		}
		r.Post("/tasks", a.enqueue)
		r.Post("/tasks/batch", a.enqueueBatch)
		r.Post("/slots/{n}/release", a.releaseSlot)
	})

	return r
}

// authenticate accepts "Authorization: Bearer <token>" with a persisted token.
func (a *api) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, r, a.logger, http.StatusUnauthorized, "Authorization header required", nil)
			return
		}

		tok := bearerToken(r)
		if tok == "" {
			respondError(w, r, a.logger, http.StatusUnauthorized, "Invalid authorization format", nil)
			return
		}

		if !a.svc.ValidToken(r.Context(), tok) {
			a.logger.WarnContext(r.Context(), "rejected producer token",
				slog.String("remote_addr", r.RemoteAddr))
			respondError(w, r, a.logger, http.StatusUnauthorized, "Invalid token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return tok
}

func (a *api) limited(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, a.logger, http.StatusTooManyRequests, "Rate limit exceeded", nil)
}

func (a *api) live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ALIVE"))
}

func (a *api) readiness(w http.ResponseWriter, r *http.Request) {
	for _, check := range a.ready {
		if err := check(r.Context()); err != nil {
			a.logger.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.svc.Status(r.Context()))
}
