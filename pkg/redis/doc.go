// Package redis connects to the Redis server that backs the shared
// permission snapshot cache. It provides retrying connection setup from
// environment-driven Config and a health check probe; the cache semantics
// themselves live in pkg/cachestore.
package redis
