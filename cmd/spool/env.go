package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/spool/pkg/config"
	"github.com/dmitrymomot/spool/pkg/lock"
	"github.com/dmitrymomot/spool/pkg/logger"
	"github.com/dmitrymomot/spool/pkg/queue"
	"github.com/dmitrymomot/spool/pkg/redis"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type logConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

func (c logConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Join(config.ErrInvalidConfig, err)
	}
	return nil
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var cfg logConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return logger.New(
		logger.WithOutput(w),
		logger.WithLevelName(cfg.Level),
		logger.WithFormat(logger.Format(cfg.Format)),
		logger.WithService("spool"),
	), nil
}

// env is what every command opens: the queue plus the clients behind its
// lock backend.
type env struct {
	cfg    queue.Config
	log    *slog.Logger
	queue  *queue.Queue
	redis  *goredis.Client
	closer []func() error
}

func (e *env) Close() error {
	var errs []error
	for i := len(e.closer) - 1; i >= 0; i-- {
		errs = append(errs, e.closer[i]())
	}
	return errors.Join(errs...)
}

func openEnv(ctx context.Context, logOut io.Writer) (*env, error) {
	log, err := newLogger(logOut)
	if err != nil {
		return nil, err
	}

	var cfg queue.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log}

	locks, err := e.locks(ctx)
	if err != nil {
		return nil, err
	}

	q, err := queue.New(cfg, queue.WithLocks(locks), queue.WithLogger(log))
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.queue = q
	return e, nil
}

func (e *env) locks(ctx context.Context) (lock.Factory, error) {
	switch e.cfg.LockBackend {
	case queue.LockBackendRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, fmt.Errorf("spool: redis lock backend: %w", err)
		}
		e.redis = client
		e.closer = append(e.closer, client.Close)
		return lock.Redis(client), nil
	case queue.LockBackendMemory:
		return lock.Memory(), nil
	default:
		return lock.File(), nil
	}
}
