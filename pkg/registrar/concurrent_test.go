package registrar_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oricodes/tenantperm/pkg/cachestore"
	"github.com/oricodes/tenantperm/pkg/registrar"
	"github.com/oricodes/tenantperm/pkg/store"
	"github.com/oricodes/tenantperm/pkg/wildcard"
)

func TestRegistrar_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := store.NewMemory()
	for i := range 50 {
		_, err := src.FindOrCreatePermission(ctx, fmt.Sprintf("perm.%d", i), "acme")
		require.NoError(t, err)
	}
	reg := registrar.New(src, cachestore.NewMemory())

	t.Run("concurrent_reads", func(t *testing.T) {
		t.Parallel()

		const numGoroutines = 50
		var wg sync.WaitGroup
		wg.Add(numGoroutines)

		for range numGoroutines {
			go func() {
				defer wg.Done()
				perms, err := reg.GetPermissions(ctx, registrar.Filter{})
				assert.NoError(t, err)
				assert.Len(t, perms, 50)
			}()
		}
		wg.Wait()
	})
}

func TestRegistrar_ConcurrentInvalidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := store.NewMemory()
	_, err := src.FindOrCreatePermission(ctx, "invoices.read", "acme")
	require.NoError(t, err)
	reg := registrar.New(src, cachestore.NewMemory())

	const numGoroutines = 20
	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2)

	for i := range numGoroutines {
		go func() {
			defer wg.Done()
			perms, err := reg.GetPermissions(ctx, registrar.Filter{})
			assert.NoError(t, err)
			assert.NotEmpty(t, perms)
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				reg.ForgetCachedPermissions(ctx)
			} else {
				reg.ClearPermissionsCollection()
			}
		}(i)
	}
	wg.Wait()

	// State converges after the churn.
	perms, err := reg.GetPermissions(ctx, registrar.Filter{})
	require.NoError(t, err)
	assert.Len(t, perms, 1)
}

func TestRegistrar_ConcurrentWildcardIndexes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := registrar.New(store.NewMemory(), cachestore.NewMemory())

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := range numGoroutines {
		go func(i int) {
			defer wg.Done()
			subject := store.SubjectRef{Type: "user", ID: fmt.Sprintf("u-%d", i%5)}
			idx, err := reg.WildcardIndexFor(ctx, subject, "acme", func(context.Context) (*wildcard.Index, error) {
				return wildcard.NewIndex([]wildcard.Held{{Name: "posts.*.edit", TenantName: "acme"}}), nil
			})
			assert.NoError(t, err)
			assert.NotNil(t, idx)
		}(i)
	}
	wg.Wait()
}
