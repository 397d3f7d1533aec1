package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by configuration types that check their own
// invariants after parsing.
type Validator interface {
	Validate() error
}

// configCache stores one parsed copy per configuration type.
type configCache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	globalCache = newCache()

	defaultEnvLoaded sync.Once
)

func newCache() *configCache {
	return &configCache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}
}

// Load populates v from the environment. Each configuration type is parsed
// once per process; later calls are served from the cache.
//
// The default .env file in the working directory is loaded on first use if
// present. When *T implements Validator, Validate runs after parsing and a
// failing configuration is not cached.
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	typeName := getTypeName[T]()

	if cached, ok := globalCache.get(typeName); ok {
		*v = cached.(T)
		return nil
	}

	globalCache.mu.Lock()
	once, exists := globalCache.onces[typeName]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[typeName] = once
	}
	globalCache.mu.Unlock()

	var err error
	once.Do(func() {
		var parsed T
		if parseErr := env.Parse(&parsed); parseErr != nil {
			err = errors.Join(ErrParsingConfig, parseErr)
		} else if val, ok := any(&parsed).(Validator); ok {
			if vErr := val.Validate(); vErr != nil {
				err = errors.Join(ErrInvalidConfig, vErr)
			}
		}

		globalCache.mu.Lock()
		defer globalCache.mu.Unlock()
		if err != nil {
			// Allow a retry once the environment is fixed.
			delete(globalCache.onces, typeName)
			return
		}
		globalCache.values[typeName] = parsed
	})
	if err != nil {
		return err
	}

	if cached, ok := globalCache.get(typeName); ok {
		*v = cached.(T)
		return nil
	}
	return ErrConfigNotLoaded
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// LoadEnv loads the given .env files into the process environment.
// Later files override earlier ones; variables already set in the process
// are never overridden by the first file.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		return godotenv.Load()
	}
	if err := godotenv.Load(files[0]); err != nil {
		return errors.Join(ErrLoadingEnv, err)
	}
	if len(files) > 1 {
		if err := godotenv.Overload(files[1:]...); err != nil {
			return errors.Join(ErrLoadingEnv, err)
		}
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on failure.
func MustLoadEnv(files ...string) {
	if err := LoadEnv(files...); err != nil {
		panic(fmt.Sprintf("Failed to load env files: %v", err))
	}
}

// ResetCache drops every cached configuration. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
}

func (c *configCache) get(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

func getTypeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return t.PkgPath() + "." + t.String()
}
