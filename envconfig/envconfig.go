// Package envconfig loads process configuration from environment variables
// into tagged structs. A .env file in the working directory, when present, is
// loaded once before the first parse.
//
//	type PoolConfig struct {
//		Workers int `env:"BACKGROUND_WORKER_COUNT" envDefault:"10"`
//	}
//
//	cfg, err := envconfig.Parse[PoolConfig]()
package envconfig

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrNilPointer is returned when Load receives a nil pointer.
	ErrNilPointer = errors.New("nil pointer provided to config loader")

	// ErrConfigNotLoaded is returned when a cached config vanished between parse and read.
	ErrConfigNotLoaded = errors.New("configuration has not been loaded")
)

// cache keeps one parsed value per configuration type.
type cache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	globalCache = &cache{ //nolint:gochecknoglobals
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}

	dotenvLoaded sync.Once //nolint:gochecknoglobals
)

func loadDotenv() {
	dotenvLoaded.Do(func() {
		// A missing .env file is the normal case.
		_ = godotenv.Load()
	})
}

// Parse reads the environment into a fresh T on every call.
func Parse[T any]() (T, error) {
	loadDotenv()

	var cfg T

	if err := env.Parse(&cfg); err != nil {
		var zero T

		return zero, errors.Join(ErrParsingConfig, err)
	}

	return cfg, nil
}

// Load parses the environment into v. Each configuration type is parsed once
// per process; later calls copy the cached value.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	key := typeName[T]()

	globalCache.mu.RLock()
	cached, ok := globalCache.values[key]
	globalCache.mu.RUnlock()

	if ok {
		*v = cached.(T) //nolint:forcetypeassert

		return nil
	}

	globalCache.mu.Lock()

	once, exists := globalCache.onces[key]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[key] = once
	}

	globalCache.mu.Unlock()

	var err error

	once.Do(func() {
		var parsed T

		parsed, err = Parse[T]()
		if err != nil {
			return
		}

		globalCache.mu.Lock()
		globalCache.values[key] = parsed
		globalCache.mu.Unlock()
	})

	if err != nil {
		return err
	}

	globalCache.mu.RLock()
	defer globalCache.mu.RUnlock()

	if cached, ok := globalCache.values[key]; ok {
		*v = cached.(T) //nolint:forcetypeassert

		return nil
	}

	return ErrConfigNotLoaded
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
