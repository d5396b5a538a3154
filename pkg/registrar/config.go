package registrar

import "time"

// Config carries the cache tuning for the permission registrar.
type Config struct {
	CacheKey        string        `env:"PERMISSION_CACHE_KEY" envDefault:"tenantperm.permissions.cache"`                 // Cache store key holding the snapshot.
	CacheTTL        time.Duration `env:"PERMISSION_CACHE_TTL" envDefault:"24h"`                                          // Snapshot staleness window.
	ExcludedColumns []string      `env:"PERMISSION_CACHE_EXCLUDED_COLUMNS" envDefault:"created_at,updated_at" envSeparator:","` // Columns left out of the snapshot.
}
