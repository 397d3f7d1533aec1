package ratelimiter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spool/pkg/ratelimiter"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func byHeader(r *http.Request) string { return r.Header.Get("X-Producer") }

func send(h http.Handler, producer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/tasks", nil)
	if producer != "" {
		req.Header.Set("X-Producer", producer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	b, _ := newBucket(t, newClock())
	h := ratelimiter.Middleware(b, byHeader)(okHandler())

	for _, remaining := range []string{"2", "1", "0"} {
		rec := send(h, "p1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, remaining, rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	rec := send(h, "p1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send(h, "p2").Code)
	assert.Equal(t, http.StatusOK, send(h, "").Code, "requests without a key pass")
}

func TestMiddlewareRejectHandler(t *testing.T) {
	t.Parallel()

	b, _ := newBucket(t, newClock())
	reject := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := ratelimiter.Middleware(b, byHeader, ratelimiter.WithRejectHandler(reject))(okHandler())

	for range 3 {
		send(h, "p")
	}
	assert.Equal(t, http.StatusTeapot, send(h, "p").Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimiter.Result, error) {
	return ratelimiter.Result{}, errors.New("store down")
}

func TestMiddlewareStoreFailureAllows(t *testing.T) {
	t.Parallel()

	h := ratelimiter.Middleware(failingLimiter{}, byHeader)(okHandler())
	rec := send(h, "p")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestHashKey(t *testing.T) {
	t.Parallel()

	key := ratelimiter.HashKey(byHeader)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, key(req))

	req.Header.Set("X-Producer", "secret-token")
	hashed := key(req)
	assert.Len(t, hashed, 16)
	assert.NotContains(t, hashed, "secret")
	assert.Equal(t, hashed, key(req))
}
