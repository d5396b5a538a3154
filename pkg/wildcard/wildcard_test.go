package wildcard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oricodes/tenantperm/pkg/wildcard"
)

func TestSegmentMatcher_Implies(t *testing.T) {
	t.Parallel()

	idx := wildcard.NewIndex([]wildcard.Held{
		{Name: "posts.*.edit", TenantName: "acme"},
		{Name: "invoices.read", TenantName: "acme"},
		{Name: "*.view", TenantName: "acme"},
		{Name: "reports.export", TenantName: "globex"},
	})
	m := wildcard.NewSegmentMatcher()

	tests := []struct {
		name       string
		permission string
		tenant     string
		want       bool
	}{
		{name: "wildcard middle segment", permission: "posts.42.edit", tenant: "acme", want: true},
		{name: "wildcard matches any value", permission: "posts.anything.edit", tenant: "acme", want: true},
		{name: "literal mismatch after wildcard", permission: "posts.42.delete", tenant: "acme", want: false},
		{name: "segment count mismatch short", permission: "posts.edit", tenant: "acme", want: false},
		{name: "segment count mismatch long", permission: "posts.42.edit.now", tenant: "acme", want: false},
		{name: "exact match", permission: "invoices.read", tenant: "acme", want: true},
		{name: "exact near miss", permission: "invoices.write", tenant: "acme", want: false},
		{name: "leading wildcard", permission: "dashboard.view", tenant: "acme", want: true},
		{name: "tenant isolation", permission: "posts.42.edit", tenant: "globex", want: false},
		{name: "other tenant grant", permission: "reports.export", tenant: "globex", want: true},
		{name: "unknown tenant", permission: "reports.export", tenant: "initech", want: false},
		{name: "empty permission", permission: "", tenant: "acme", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m.Implies(tt.permission, tt.tenant, idx))
		})
	}
}

func TestSegmentMatcher_NoPrefixMatching(t *testing.T) {
	t.Parallel()

	// A held permission never implies a longer one: wildcards must be
	// explicit, there is no implicit prefix semantics.
	idx := wildcard.NewIndex([]wildcard.Held{
		{Name: "posts", TenantName: "acme"},
		{Name: "posts.42", TenantName: "acme"},
	})
	m := wildcard.NewSegmentMatcher()

	assert.True(t, m.Implies("posts", "acme", idx))
	assert.True(t, m.Implies("posts.42", "acme", idx))
	assert.False(t, m.Implies("posts.42.edit", "acme", idx))
}

func TestIndex_CustomDelimiterAndToken(t *testing.T) {
	t.Parallel()

	idx := wildcard.NewIndex(
		[]wildcard.Held{{Name: "posts/%/edit", TenantName: "acme"}},
		wildcard.WithDelimiter("/"),
		wildcard.WithToken("%"),
	)
	m := wildcard.NewSegmentMatcher()

	assert.True(t, m.Implies("posts/42/edit", "acme", idx))
	assert.False(t, m.Implies("posts/42/delete", "acme", idx))
	// The default delimiter is not special anymore.
	assert.False(t, m.Implies("posts.42.edit", "acme", idx))
}

func TestIndex_EmptyAndRebuild(t *testing.T) {
	t.Parallel()

	m := wildcard.NewSegmentMatcher()

	empty := wildcard.NewIndex(nil)
	assert.Equal(t, 0, empty.Len())
	assert.False(t, m.Implies("anything", "acme", empty))

	// Empty names are skipped during construction.
	skipped := wildcard.NewIndex([]wildcard.Held{{Name: "", TenantName: "acme"}})
	assert.Equal(t, 0, skipped.Len())

	// The index is rebuildable from scratch from the same permission set.
	held := []wildcard.Held{{Name: "posts.*.edit", TenantName: "acme"}}
	first := wildcard.NewIndex(held)
	second := wildcard.NewIndex(held)
	assert.Equal(t, m.Implies("posts.1.edit", "acme", first), m.Implies("posts.1.edit", "acme", second))
}

func TestSegmentMatcher_NilIndex(t *testing.T) {
	t.Parallel()

	m := wildcard.NewSegmentMatcher()
	assert.False(t, m.Implies("posts.42.edit", "acme", nil))
}
