package authz_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ConcurrentChecks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng, _ := newTestEngine(t)
	alice := user{id: "alice", tenants: []string{"acme"}}

	_, err := eng.CreatePermission(ctx, "invoices.read", "acme")
	require.NoError(t, err)
	require.NoError(t, eng.GivePermissionTo(ctx, alice, "acme", "invoices.read"))

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for range numGoroutines {
		go func() {
			defer wg.Done()
			ok, err := eng.HasPermissionTo(ctx, alice, "invoices.read", "acme")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestEngine_ConcurrentGrantsAndChecks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng, _ := newTestEngine(t)

	const numGoroutines = 20
	for i := range numGoroutines {
		_, err := eng.CreatePermission(ctx, fmt.Sprintf("perm.%d", i), "acme")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2)

	for i := range numGoroutines {
		subj := user{id: fmt.Sprintf("u-%d", i), tenants: []string{"acme"}}
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, eng.GivePermissionTo(ctx, subj, "acme", fmt.Sprintf("perm.%d", i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := eng.CheckPermissionTo(ctx, subj, fmt.Sprintf("perm.%d", i), "acme")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Every grant landed exactly once.
	for i := range numGoroutines {
		subj := user{id: fmt.Sprintf("u-%d", i), tenants: []string{"acme"}}
		perms, err := eng.GetDirectPermissions(ctx, subj, "acme")
		require.NoError(t, err)
		assert.Len(t, perms, 1)
	}
}

func TestEngine_ConcurrentFindOrCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng, _ := newTestEngine(t)

	const numGoroutines = 30
	ids := make([]int64, numGoroutines)
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := range numGoroutines {
		go func(i int) {
			defer wg.Done()
			perm, err := eng.FindOrCreatePermission(ctx, "shared.permission", "acme")
			assert.NoError(t, err)
			ids[i] = perm.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
