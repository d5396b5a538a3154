package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oricodes/tenantperm/pkg/store"
)

type stringerRef string

func (s stringerRef) String() string { return string(s) }

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("integers classify as ids", func(t *testing.T) {
		t.Parallel()

		for _, value := range []any{int(7), int32(7), int64(7), uint(7), uint32(7), uint64(7)} {
			ref, err := Classify(value)
			require.NoError(t, err)
			assert.Equal(t, refID, ref.kind)
			assert.EqualValues(t, 7, ref.id)
		}
	})

	t.Run("uuid strings classify as uids", func(t *testing.T) {
		t.Parallel()

		ref, err := Classify("0198c3c4-27b1-7f49-8d8f-0d84a0b2e3f4")
		require.NoError(t, err)
		assert.Equal(t, refUID, ref.kind)
		assert.Equal(t, "0198c3c4-27b1-7f49-8d8f-0d84a0b2e3f4", ref.uid)
	})

	t.Run("ulid strings classify as uids", func(t *testing.T) {
		t.Parallel()

		ref, err := Classify("01ARZ3NDEKTSV4RRFFQ69G5FAV")
		require.NoError(t, err)
		assert.Equal(t, refUID, ref.kind)
	})

	t.Run("uuid values classify as uids", func(t *testing.T) {
		t.Parallel()

		u := uuid.New()
		ref, err := Classify(u)
		require.NoError(t, err)
		assert.Equal(t, refUID, ref.kind)
		assert.Equal(t, u.String(), ref.uid)
	})

	t.Run("plain strings classify as names", func(t *testing.T) {
		t.Parallel()

		ref, err := Classify("invoices.read")
		require.NoError(t, err)
		assert.Equal(t, refName, ref.kind)
		assert.Equal(t, "invoices.read", ref.name)
	})

	t.Run("stringers classify through their string form", func(t *testing.T) {
		t.Parallel()

		ref, err := Classify(stringerRef("invoices.read"))
		require.NoError(t, err)
		assert.Equal(t, refName, ref.kind)
		assert.Equal(t, "invoices.read", ref.name)
	})

	t.Run("resolved rows pass through", func(t *testing.T) {
		t.Parallel()

		perm := store.Permission{ID: 1, Name: "invoices.read", TenantName: "acme"}
		ref, err := Classify(perm)
		require.NoError(t, err)
		assert.Equal(t, refPermission, ref.kind)
		assert.Equal(t, perm, ref.permission)

		role := store.Role{ID: 2, Name: "billing", TenantName: "acme"}
		ref, err = Classify(&role)
		require.NoError(t, err)
		assert.Equal(t, refRole, ref.kind)
		assert.Equal(t, role, ref.role)
	})

	t.Run("invalid inputs are rejected", func(t *testing.T) {
		t.Parallel()

		for _, value := range []any{nil, "", 3.14, true, struct{}{}, (*store.Permission)(nil), (*store.Role)(nil)} {
			_, err := Classify(value)
			assert.ErrorIs(t, err, ErrInvalidReferenceType, "value %v", value)
		}
	})
}
