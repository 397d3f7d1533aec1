package main

import (
	"context"
	"io"

	"github.com/dmitrymomot/spool/pkg/config"
	"github.com/dmitrymomot/spool/pkg/httpserver"
	"github.com/dmitrymomot/spool/pkg/queueapi"
	"github.com/dmitrymomot/spool/pkg/ratelimiter"
)

type serveConfig struct {
	RateLimit bool `env:"API_RATE_LIMIT" envDefault:"true"`
}

// serve runs the producer API until ctx is canceled. Readiness follows the
// same checks a worker runs before claiming tasks.
func serve(ctx context.Context, stderr io.Writer) error {
	var hcfg httpserver.Config
	if err := config.Load(&hcfg); err != nil {
		return err
	}
	var scfg serveConfig
	if err := config.Load(&scfg); err != nil {
		return err
	}

	e, err := openEnv(ctx, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	checks, err := e.preflight(ctx)
	if err != nil {
		return err
	}

	opts := []queueapi.Option{
		queueapi.WithLogger(e.log),
		queueapi.WithReadiness(checks.Run),
	}
	if scfg.RateLimit {
		bucket, err := e.rateLimiter()
		if err != nil {
			return err
		}
		opts = append(opts, queueapi.WithRateLimit(bucket))
	}

	router := queueapi.NewRouter(e.queue, opts...)
	return httpserver.New(hcfg, httpserver.WithLogger(e.log)).Run(ctx, router)
}

// rateLimiter shares bucket state through Redis when the queue already uses
// it for locks, so every API process draws from the same bucket.
func (e *env) rateLimiter() (*ratelimiter.Bucket, error) {
	var rcfg ratelimiter.Config
	if err := config.Load(&rcfg); err != nil {
		return nil, err
	}
	var store ratelimiter.Store = ratelimiter.NewMemoryStore()
	if e.redis != nil {
		store = ratelimiter.NewRedisStore(e.redis)
	}
	return ratelimiter.NewBucket(store, rcfg)
}
