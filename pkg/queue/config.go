package queue

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Lock backends selectable through Config.LockBackend.
const (
	LockBackendFile   = "file"
	LockBackendRedis  = "redis"
	LockBackendMemory = "memory"
)

const (
	slotsDir  = "workers"
	tokensDir = "tokens"
)

// Config is read once when a worker or queue is built and never mutated after.
type Config struct {
	Path              string        `env:"QUEUE_PATH,required" validate:"required"`
	Workers           int           `env:"QUEUE_WORKERS" envDefault:"3" validate:"min=1,max=1024"`
	WorkerLifetime    time.Duration `env:"QUEUE_WORKER_LIFETIME" envDefault:"600s" validate:"gt=0"`
	WorkerTaskTimeout time.Duration `env:"QUEUE_WORKER_TASK_TIMEOUT" envDefault:"1800s" validate:"gt=0"`
	WorkerMemoryLimit int64         `env:"QUEUE_WORKER_MEMORY_LIMIT" envDefault:"1073741824" validate:"gte=0"` // bytes, 0 disables
	PollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s" validate:"gt=0"`
	LockBackend       string        `env:"QUEUE_LOCK_BACKEND" envDefault:"file" validate:"oneof=file redis memory"`
	BatchLimit        int           `env:"QUEUE_BATCH_LIMIT" envDefault:"1000" validate:"gte=0"` // current tasks above which batch imports are refused, 0 disables

	// Preflight inputs.
	WatchFiles        []string      `env:"QUEUE_WATCH_FILES" envSeparator:","`
	DatabasePreflight bool          `env:"QUEUE_DATABASE_PREFLIGHT" envDefault:"false"`
	MaxReplicaLag     time.Duration `env:"QUEUE_MAX_REPLICA_LAG" envDefault:"0s" validate:"gte=0"`
}

// DefaultConfig returns the environment defaults for a spool rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:              path,
		Workers:           3,
		WorkerLifetime:    600 * time.Second,
		WorkerTaskTimeout: 1800 * time.Second,
		WorkerMemoryLimit: 1 << 30,
		PollInterval:      time.Second,
		LockBackend:       LockBackendFile,
		BatchLimit:        1000,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

// SlotsPath is the directory holding worker slot files.
func (c Config) SlotsPath() string {
	return filepath.Join(c.Path, slotsDir)
}

// TokensPath is the directory holding producer tokens.
func (c Config) TokensPath() string {
	return filepath.Join(c.Path, tokensDir)
}
