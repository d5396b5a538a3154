package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrNilPointer is returned when a nil pointer is provided to Load
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)

var (
	mu     sync.RWMutex
	loaded = make(map[string]any)

	defaultEnvOnce sync.Once
)

// Load populates v from the process environment, reading the default .env
// file once per process if present. Each configuration type is parsed once;
// subsequent calls for the same type return the cached copy.
//
//	var cfg registrar.Config
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.RLock()
	cached, ok := loaded[key]
	mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if cached, ok := loaded[key]; ok {
		// Another goroutine parsed the same type first; serve its copy so
		// every caller observes one value.
		*v = cached.(T)
		return nil
	}
	loaded[key] = *v
	return nil
}

// MustLoad works like Load but panics on failure. Use it for configuration
// the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// LoadEnv reads the given .env files into the process environment before any
// struct parsing. Missing files are an error here, unlike the implicit
// default .env.
func LoadEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}

// Reset drops every cached configuration so the next Load re-parses the
// environment. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	loaded = make(map[string]any)
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
