package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oricodes/tenantperm/pkg/config"
)

type cacheSettings struct {
	Key string        `env:"TEST_CACHE_KEY" envDefault:"tenantperm.permissions.cache"`
	TTL time.Duration `env:"TEST_CACHE_TTL" envDefault:"24h"`
}

type requiredSettings struct {
	DSN string `env:"TEST_REQUIRED_DSN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults apply", func(t *testing.T) {
		config.Reset()

		var cfg cacheSettings
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "tenantperm.permissions.cache", cfg.Key)
		assert.Equal(t, 24*time.Hour, cfg.TTL)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_CACHE_KEY", "custom.key")
		t.Setenv("TEST_CACHE_TTL", "5m")

		var cfg cacheSettings
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "custom.key", cfg.Key)
		assert.Equal(t, 5*time.Minute, cfg.TTL)
	})

	t.Run("same type served from cache", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_CACHE_KEY", "first.key")

		var first cacheSettings
		require.NoError(t, config.Load(&first))

		// Later environment changes do not reach an already loaded type.
		t.Setenv("TEST_CACHE_KEY", "second.key")
		var second cacheSettings
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first.key", second.Key)
	})

	t.Run("missing required value fails", func(t *testing.T) {
		config.Reset()

		var cfg requiredSettings
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[cacheSettings](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
