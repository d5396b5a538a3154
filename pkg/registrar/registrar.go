package registrar

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oricodes/tenantperm/pkg/cachestore"
	"github.com/oricodes/tenantperm/pkg/store"
	"github.com/oricodes/tenantperm/pkg/wildcard"
)

// PermissionSource provides the permission universe the registrar caches.
// store.Store satisfies it.
type PermissionSource interface {
	ListPermissions(ctx context.Context) ([]store.Permission, error)
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithCacheKey overrides the snapshot cache key.
func WithCacheKey(key string) Option {
	return func(r *Registrar) {
		if key != "" {
			r.cacheKey = key
		}
	}
}

// WithCacheTTL overrides the snapshot staleness window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registrar) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithExcludedColumns overrides the columns left out of the snapshot.
func WithExcludedColumns(cols ...string) Option {
	return func(r *Registrar) {
		r.except = cols
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registrar) {
		if log != nil {
			r.log = log
		}
	}
}

// WithConfig applies an environment-driven Config in one step.
func WithConfig(cfg Config) Option {
	return func(r *Registrar) {
		WithCacheKey(cfg.CacheKey)(r)
		WithCacheTTL(cfg.CacheTTL)(r)
		if len(cfg.ExcludedColumns) > 0 {
			r.except = cfg.ExcludedColumns
		}
	}
}

// Registrar owns the process-wide cache of permission records. It loads the
// universe from the store on demand, persists it as a compact aliased
// snapshot in the cache store, and memoizes the hydrated collection for the
// current unit of work.
//
// The memo must be cleared between work units of a long-lived process (see
// ClearPermissionsCollection), and the whole cache must be invalidated on
// any write affecting permissions (see ForgetCachedPermissions).
//
// Concurrent processes repopulating the snapshot after an invalidation race
// benignly: each computes an equivalent snapshot and the last write wins.
type Registrar struct {
	source PermissionSource
	cache  cachestore.Store
	log    *slog.Logger

	cacheKey string
	ttl      time.Duration
	except   []string

	mu          sync.Mutex
	permissions []store.Permission // nil until loaded for this work unit
	loaded      bool
	wildcardIdx map[wildcardKey]*wildcard.Index
}

// wildcardKey scopes memoized wildcard indexes per subject and tenant so one
// tenant's patterns never answer for another.
type wildcardKey struct {
	subject store.SubjectRef
	tenant  string
}

// New creates a Registrar over a permission source and a cache store.
func New(source PermissionSource, cache cachestore.Store, opts ...Option) *Registrar {
	r := &Registrar{
		source:      source,
		cache:       cache,
		log:         slog.Default(),
		cacheKey:    "tenantperm.permissions.cache",
		ttl:         24 * time.Hour,
		except:      []string{"created_at", "updated_at"},
		wildcardIdx: make(map[wildcardKey]*wildcard.Index),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Filter selects permissions by exact attribute match. Nil fields are
// ignored; set fields combine as AND conditions.
type Filter struct {
	ID         *int64
	UID        *uuid.UUID
	Name       *string
	TenantName *string
}

func (f Filter) matches(p store.Permission) bool {
	if f.ID != nil && p.ID != *f.ID {
		return false
	}
	if f.UID != nil && p.UID != *f.UID {
		return false
	}
	if f.Name != nil && p.Name != *f.Name {
		return false
	}
	if f.TenantName != nil && p.TenantName != *f.TenantName {
		return false
	}
	return true
}

// GetPermissions returns the cached permissions matching filter, loading the
// snapshot on first use within the current work unit.
func (r *Registrar) GetPermissions(ctx context.Context, filter Filter) ([]store.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadPermissions(ctx); err != nil {
		return nil, err
	}

	var out []store.Permission
	for _, p := range r.permissions {
		if filter.matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetPermission returns the first cached permission matching filter, or
// store.ErrPermissionNotFound.
func (r *Registrar) GetPermission(ctx context.Context, filter Filter) (store.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadPermissions(ctx); err != nil {
		return store.Permission{}, err
	}

	for _, p := range r.permissions {
		if filter.matches(p) {
			return p, nil
		}
	}
	return store.Permission{}, store.ErrPermissionNotFound
}

// ForgetCachedPermissions drops the snapshot from the cache store along with
// the in-process memo and every wildcard index. It reports whether the cache
// store delete succeeded; the in-process state is cleared either way.
func (r *Registrar) ForgetCachedPermissions(ctx context.Context) bool {
	r.mu.Lock()
	r.permissions = nil
	r.loaded = false
	r.wildcardIdx = make(map[wildcardKey]*wildcard.Index)
	r.mu.Unlock()

	if err := r.cache.Delete(ctx, r.cacheKey); err != nil {
		r.log.WarnContext(ctx, "failed to delete permission snapshot from cache store",
			slog.String("key", r.cacheKey), slog.Any("error", err))
		return false
	}
	return true
}

// ClearPermissionsCollection drops only the in-process memo and wildcard
// indexes, leaving the persisted snapshot intact. Call it at work-unit
// boundaries of a long-lived worker so permissions loaded for one request
// cannot leak into the next.
func (r *Registrar) ClearPermissionsCollection() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.permissions = nil
	r.loaded = false
	r.wildcardIdx = make(map[wildcardKey]*wildcard.Index)
}

// WildcardIndexFor returns the memoized wildcard index for subject within
// tenantName, building it with build on first use. The index is dropped by
// ForgetWildcardIndex and by every cache invalidation.
func (r *Registrar) WildcardIndexFor(ctx context.Context, subject store.SubjectRef, tenantName string, build func(context.Context) (*wildcard.Index, error)) (*wildcard.Index, error) {
	key := wildcardKey{subject: subject, tenant: tenantName}

	r.mu.Lock()
	if idx, ok := r.wildcardIdx[key]; ok {
		r.mu.Unlock()
		return idx, nil
	}
	r.mu.Unlock()

	// Build outside the lock; the builder reads from the store. Two
	// concurrent builders for the same subject produce equivalent indexes.
	idx, err := build(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.wildcardIdx[key] = idx
	r.mu.Unlock()
	return idx, nil
}

// ForgetWildcardIndex drops the memoized indexes for one subject across all
// tenants.
func (r *Registrar) ForgetWildcardIndex(subject store.SubjectRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.wildcardIdx {
		if key.subject == subject {
			delete(r.wildcardIdx, key)
		}
	}
}

// ForgetAllWildcardIndexes drops every memoized wildcard index.
func (r *Registrar) ForgetAllWildcardIndexes() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wildcardIdx = make(map[wildcardKey]*wildcard.Index)
}

// loadPermissions populates the memo from the cache store, rebuilding the
// snapshot from the permission source on miss. Caller must hold r.mu.
func (r *Registrar) loadPermissions(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	data, ok, err := r.cache.Get(ctx, r.cacheKey)
	if err != nil {
		return err
	}
	if ok {
		perms, err := unmarshalSnapshot(data)
		switch {
		case err == nil:
			r.permissions = perms
			r.loaded = true
			return nil
		case errors.Is(err, ErrInvalidSnapshot):
			// Entry written by an older format: drop it and rebuild.
			if derr := r.cache.Delete(ctx, r.cacheKey); derr != nil {
				r.log.WarnContext(ctx, "failed to drop invalid permission snapshot",
					slog.String("key", r.cacheKey), slog.Any("error", derr))
			}
		default:
			return err
		}
	}

	rows, err := r.source.ListPermissions(ctx)
	if err != nil {
		return err
	}

	data, err = marshalSnapshot(rows, r.except)
	if err != nil {
		return err
	}
	if err := r.cache.Set(ctx, r.cacheKey, data, r.ttl); err != nil {
		// A failed populate degrades to per-work-unit store reads; the memo
		// below still serves this work unit.
		r.log.WarnContext(ctx, "failed to store permission snapshot",
			slog.String("key", r.cacheKey), slog.Any("error", err))
	}

	// Hydrate from the serialized form so cached and freshly built memos
	// expose identical visible fields (excluded columns zeroed).
	perms, err := unmarshalSnapshot(data)
	if err != nil {
		return err
	}
	r.permissions = perms
	r.loaded = true
	return nil
}
