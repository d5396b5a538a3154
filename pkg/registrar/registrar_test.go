package registrar_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oricodes/tenantperm/pkg/cachestore"
	"github.com/oricodes/tenantperm/pkg/registrar"
	"github.com/oricodes/tenantperm/pkg/store"
	"github.com/oricodes/tenantperm/pkg/wildcard"
)

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	for _, row := range []struct{ name, tenant string }{
		{"invoices.read", "acme"},
		{"invoices.write", "acme"},
		{"invoices.read", "globex"},
	} {
		_, err := m.FindOrCreatePermission(ctx, row.name, row.tenant)
		require.NoError(t, err)
	}
	return m
}

func TestRegistrar_GetPermissions_Filters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	reg := registrar.New(src, cachestore.NewMemory())

	all, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	acme, err := reg.GetPermissions(ctx, registrar.Filter{TenantName: strPtr("acme")})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	one, err := reg.GetPermission(ctx, registrar.Filter{
		Name:       strPtr("invoices.read"),
		TenantName: strPtr("globex"),
	})
	require.NoError(t, err)
	assert.Equal(t, "globex", one.TenantName)

	byID, err := reg.GetPermission(ctx, registrar.Filter{ID: int64Ptr(one.ID)})
	require.NoError(t, err)
	assert.Equal(t, one.ID, byID.ID)

	byUID, err := reg.GetPermission(ctx, registrar.Filter{UID: &one.UID})
	require.NoError(t, err)
	assert.Equal(t, one.ID, byUID.ID)

	_, err = reg.GetPermission(ctx, registrar.Filter{
		Name:       strPtr("invoices.write"),
		TenantName: strPtr("globex"),
	})
	assert.ErrorIs(t, err, store.ErrPermissionNotFound)
}

func TestRegistrar_MemoizationWithinWorkUnit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	reg := registrar.New(src, cachestore.NewMemory())

	before, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	require.Len(t, before, 3)

	// A row added behind the registrar's back stays invisible until the
	// cache is invalidated: both the memo and the snapshot still hold the
	// old universe.
	_, err = src.FindOrCreatePermission(ctx, "reports.view", "acme")
	require.NoError(t, err)

	after, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, after, 3)

	require.True(t, reg.ForgetCachedPermissions(ctx))

	refreshed, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, refreshed, 4)
}

func TestRegistrar_ClearPermissionsCollection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	cache := cachestore.NewMemory()
	reg := registrar.New(src, cache)

	_, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)

	_, err = src.FindOrCreatePermission(ctx, "reports.view", "acme")
	require.NoError(t, err)

	// Clearing the memo alone re-reads the persisted snapshot, which still
	// carries the old universe. This is the work-unit boundary reset, not an
	// invalidation.
	reg.ClearPermissionsCollection()

	after, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, after, 3)
}

func TestRegistrar_SharedSnapshotAcrossInstances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	cache := cachestore.NewMemory()

	first := registrar.New(src, cache)
	_, err := first.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)

	// A second registrar (another "process") hydrates from the snapshot
	// without touching the store: rows added since are not seen.
	_, err = src.FindOrCreatePermission(ctx, "reports.view", "acme")
	require.NoError(t, err)

	second := registrar.New(src, cache)
	got, err := second.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRegistrar_LegacySnapshotForcesRebuild(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	cache := cachestore.NewMemory()

	// Simulate an entry written before the aliased format existed.
	require.NoError(t, cache.Set(ctx, "tenantperm.permissions.cache",
		[]byte(`{"permissions":[{"id":99,"name":"stale","tenant_name":"acme"}]}`), 0))

	reg := registrar.New(src, cache)
	got, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, p := range got {
		assert.NotEqual(t, "stale", p.Name)
	}
}

func TestRegistrar_TTLExpiryRepopulates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	cache := cachestore.NewMemory()
	reg := registrar.New(src, cache, registrar.WithCacheTTL(10*time.Millisecond))

	_, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)

	_, err = src.FindOrCreatePermission(ctx, "reports.view", "acme")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	reg.ClearPermissionsCollection()

	// The snapshot has expired, so the next load rebuilds from the store.
	got, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestRegistrar_WildcardIndexMemo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	reg := registrar.New(src, cachestore.NewMemory())
	subject := store.SubjectRef{Type: "user", ID: "u-1"}

	builds := 0
	build := func(context.Context) (*wildcard.Index, error) {
		builds++
		return wildcard.NewIndex([]wildcard.Held{{Name: "posts.*.edit", TenantName: "acme"}}), nil
	}

	idx, err := reg.WildcardIndexFor(ctx, subject, "acme", build)
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Equal(t, 1, builds)

	// Memoized: the builder is not invoked again.
	again, err := reg.WildcardIndexFor(ctx, subject, "acme", build)
	require.NoError(t, err)
	assert.Same(t, idx, again)
	assert.Equal(t, 1, builds)

	// A different tenant gets its own index.
	_, err = reg.WildcardIndexFor(ctx, subject, "globex", build)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)

	// Targeted invalidation drops every tenant's index for that subject.
	reg.ForgetWildcardIndex(subject)
	_, err = reg.WildcardIndexFor(ctx, subject, "acme", build)
	require.NoError(t, err)
	assert.Equal(t, 3, builds)

	// Global cache invalidation drops wildcard indexes too.
	reg.ForgetCachedPermissions(ctx)
	_, err = reg.WildcardIndexFor(ctx, subject, "acme", build)
	require.NoError(t, err)
	assert.Equal(t, 4, builds)
}

func TestRegistrar_CustomKeyAndConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := seedStore(t)
	cache := cachestore.NewMemory()
	reg := registrar.New(src, cache, registrar.WithConfig(registrar.Config{
		CacheKey:        "perm.custom",
		CacheTTL:        time.Hour,
		ExcludedColumns: []string{"created_at", "updated_at"},
	}))

	_, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, "perm.custom")
	require.NoError(t, err)
	assert.True(t, ok)
}
