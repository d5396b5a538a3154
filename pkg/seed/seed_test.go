package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oricodes/tenantperm/pkg/authz"
	"github.com/oricodes/tenantperm/pkg/cachestore"
	"github.com/oricodes/tenantperm/pkg/registrar"
	"github.com/oricodes/tenantperm/pkg/seed"
	"github.com/oricodes/tenantperm/pkg/store"
)

const manifest = `
tenants:
  - name: acme
    permissions:
      - invoices.read
      - invoices.write
      - reports.view
    roles:
      - name: billing
        permissions: [invoices.read, invoices.write]
      - name: viewer
        permissions: [reports.view]
  - name: globex
    permissions:
      - invoices.read
`

type user struct {
	id      string
	tenants []string
}

func (u user) SubjectRef() store.SubjectRef { return store.SubjectRef{Type: "user", ID: u.id} }
func (u user) SubjectTenants() []string     { return u.tenants }

func newEngine(t *testing.T) *authz.Engine {
	t.Helper()

	st := store.NewMemory()
	eng, err := authz.New(st, registrar.New(st, cachestore.NewMemory()))
	require.NoError(t, err)
	return eng
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("valid manifest", func(t *testing.T) {
		t.Parallel()

		m, err := seed.Parse(strings.NewReader(manifest))
		require.NoError(t, err)
		require.Len(t, m.Tenants, 2)
		assert.Equal(t, "acme", m.Tenants[0].Name)
		assert.Len(t, m.Tenants[0].Roles, 2)
	})

	t.Run("empty manifest rejected", func(t *testing.T) {
		t.Parallel()

		_, err := seed.Parse(strings.NewReader("tenants: []"))
		assert.ErrorIs(t, err, seed.ErrInvalidManifest)
	})

	t.Run("undeclared role permission rejected", func(t *testing.T) {
		t.Parallel()

		_, err := seed.Parse(strings.NewReader(`
tenants:
  - name: acme
    permissions: [a.read]
    roles:
      - name: admin
        permissions: [b.write]
`))
		assert.ErrorIs(t, err, seed.ErrInvalidManifest)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		t.Parallel()

		_, err := seed.Parse(strings.NewReader(`
tenants:
  - name: acme
    permisions: [a.read]
`))
		assert.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t)

	m, err := seed.Parse(strings.NewReader(manifest))
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, eng, m, nil))

	// Seeded roles carry their declared permissions.
	subj := user{id: "alice", tenants: []string{"acme"}}
	require.NoError(t, eng.AssignRole(ctx, subj, "acme", "billing"))

	ok, err := eng.HasPermissionTo(ctx, subj, "invoices.write", "acme")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eng.CheckPermissionTo(ctx, subj, "reports.view", "acme")
	require.NoError(t, err)
	assert.False(t, ok)

	// Tenants stay isolated.
	ok, err = eng.CheckPermissionTo(ctx, subj, "invoices.read", "globex")
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("reapply is idempotent", func(t *testing.T) {
		require.NoError(t, seed.Apply(ctx, eng, m, nil))

		perms, err := eng.GetPermissionNames(ctx, subj, "acme")
		require.NoError(t, err)
		assert.Equal(t, []string{"invoices.read", "invoices.write"}, perms)
	})

	t.Run("changed manifest converges", func(t *testing.T) {
		trimmed, err := seed.Parse(strings.NewReader(`
tenants:
  - name: acme
    permissions: [invoices.read, invoices.write, reports.view]
    roles:
      - name: billing
        permissions: [invoices.read]
`))
		require.NoError(t, err)
		require.NoError(t, seed.Apply(ctx, eng, trimmed, nil))

		perms, err := eng.GetPermissionNames(ctx, subj, "acme")
		require.NoError(t, err)
		assert.Equal(t, []string{"invoices.read"}, perms)
	})
}
