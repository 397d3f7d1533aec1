// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing):
//
//	type QueueConfig struct {
//	    Path    string `env:"QUEUE_PATH,required"`
//	    Workers int    `env:"QUEUE_WORKERS" envDefault:"3"`
//	}
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Each configuration type is parsed at most once per process and cached by
// its fully-qualified type name, which gives worker processes init-only
// configuration semantics. Types implementing Validator are validated after
// parsing; invalid values are reported as ErrInvalidConfig and are not cached.
//
// ResetCache clears the cache between tests.
package config
