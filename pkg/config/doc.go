// Package config loads application configuration from environment variables
// into tagged structs, with one parse per configuration type for the process
// lifetime.
//
// It wraps github.com/joho/godotenv for optional .env files and
// github.com/caarlos0/env/v11 for struct parsing:
//
//	type CacheConfig struct {
//		Key string        `env:"PERMISSION_CACHE_KEY" envDefault:"tenantperm.permissions.cache"`
//		TTL time.Duration `env:"PERMISSION_CACHE_TTL" envDefault:"24h"`
//	}
//
//	var cfg CacheConfig
//	config.MustLoad(&cfg)
//
// Call Reset between tests that mutate the environment.
package config
