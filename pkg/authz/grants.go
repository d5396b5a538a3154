package authz

import (
	"context"
	"log/slog"

	"github.com/oricodes/tenantperm/pkg/store"
)

// pendingGrant is a queued mutation against a not yet persisted subject.
type pendingGrant struct {
	tenantName    string
	teamID        string
	permissionIDs []int64
	roleIDs       []int64
	syncPerms     bool
	syncRoles     bool
}

// GivePermissionTo grants the given permissions to subject within
// tenantName. Inputs resolve through the cached permission universe;
// unresolvable permissions fail with store.ErrPermissionNotFound and
// permissions from a tenant the subject does not belong to fail with
// ErrTenantMismatch. Already granted permissions are skipped, only the
// delta is attached.
//
// Grants to a not yet persisted subject are queued, see CommitPendingGrants.
func (e *Engine) GivePermissionTo(ctx context.Context, subject Subject, tenantName string, permissions ...any) error {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return err
	}

	ids, err := e.resolvePermissionIDs(ctx, subject, tenantName, permissions)
	if err != nil {
		return err
	}
	ids, err = e.withoutHeldPermissions(ctx, subject, tenantName, ids)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if !isPersisted(subject) {
		e.queuePending(subject, pendingGrant{tenantName: tenantName, permissionIDs: ids})
		return nil
	}

	if err := e.attachPermissions(ctx, subject, tenantName, ids); err != nil {
		return err
	}
	e.invalidateAfterPermissionChange(ctx, subject, tenantName)
	return nil
}

// RevokePermissionTo removes a granted permission from subject within
// tenantName. Revoking a permission that was never granted is a no-op, not
// an error.
func (e *Engine) RevokePermissionTo(ctx context.Context, subject Subject, tenantName string, permission any) error {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return err
	}
	ref, err := Classify(permission)
	if err != nil {
		return err
	}
	perm, err := e.resolvePermission(ctx, ref, tenantName)
	if err != nil {
		return err
	}

	if roleID, ok := roleSubjectID(subject); ok {
		if err := e.store.DetachRolePermission(ctx, roleID, perm.ID); err != nil {
			return err
		}
	} else if err := e.store.DetachPermission(ctx, subject.SubjectRef(), tenantName, perm.ID); err != nil {
		return err
	}
	e.invalidateAfterPermissionChange(ctx, subject, tenantName)
	return nil
}

// SyncPermissions replaces subject's direct permission set within tenantName
// with exactly the given permissions.
func (e *Engine) SyncPermissions(ctx context.Context, subject Subject, tenantName string, permissions ...any) error {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return err
	}

	ids, err := e.resolvePermissionIDs(ctx, subject, tenantName, permissions)
	if err != nil {
		return err
	}

	if !isPersisted(subject) {
		e.queuePending(subject, pendingGrant{tenantName: tenantName, permissionIDs: ids, syncPerms: true})
		return nil
	}

	if err := e.detachAllPermissions(ctx, subject, tenantName); err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := e.attachPermissions(ctx, subject, tenantName, ids); err != nil {
			return err
		}
	}
	e.invalidateAfterPermissionChange(ctx, subject, tenantName)
	return nil
}

// CommitPendingGrants applies the mutations queued while subject was not yet
// persisted, in the order they were requested. It is a no-op when nothing is
// queued. Call it from the subject's post-save hook.
func (e *Engine) CommitPendingGrants(ctx context.Context, subject Subject) error {
	ref := subject.SubjectRef()

	e.mu.Lock()
	queued := e.pending[ref]
	delete(e.pending, ref)
	e.mu.Unlock()

	if len(queued) == 0 {
		return nil
	}

	for _, g := range queued {
		if g.syncPerms {
			if err := e.detachAllPermissions(ctx, subject, g.tenantName); err != nil {
				return err
			}
		}
		if g.syncRoles {
			if err := e.store.DetachAllRoles(ctx, ref, g.tenantName); err != nil {
				return err
			}
		}
		if len(g.permissionIDs) > 0 {
			if err := e.attachPermissions(ctx, subject, g.tenantName, g.permissionIDs); err != nil {
				return err
			}
		}
		if len(g.roleIDs) > 0 {
			if err := e.store.AttachRoles(ctx, ref, g.tenantName, g.teamID, g.roleIDs); err != nil {
				return err
			}
		}
		e.invalidateAfterPermissionChange(ctx, subject, g.tenantName)
	}
	return nil
}

// CreatePermission inserts a new permission and invalidates the cached
// snapshot. It fails with store.ErrPermissionAlreadyExists when the
// (name, tenant) pair is taken.
func (e *Engine) CreatePermission(ctx context.Context, name, tenantName string) (store.Permission, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return store.Permission{}, err
	}
	perm, err := e.store.CreatePermission(ctx, name, tenantName)
	if err != nil {
		return store.Permission{}, err
	}
	e.reg.ForgetCachedPermissions(ctx)
	return perm, nil
}

// FindOrCreatePermission returns the existing permission for (name, tenant)
// or creates it, invalidating the cached snapshot only on creation.
func (e *Engine) FindOrCreatePermission(ctx context.Context, name, tenantName string) (store.Permission, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return store.Permission{}, err
	}

	perm, err := e.resolvePermission(ctx, Ref{kind: refName, name: name}, tenantName)
	if err == nil {
		return perm, nil
	}

	perm, err = e.store.FindOrCreatePermission(ctx, name, tenantName)
	if err != nil {
		return store.Permission{}, err
	}
	e.reg.ForgetCachedPermissions(ctx)
	return perm, nil
}

// DeletePermission removes a permission and all its associations, then
// invalidates the cached snapshot. Deleting an unknown id is a no-op.
func (e *Engine) DeletePermission(ctx context.Context, id int64) error {
	if err := e.store.DeletePermission(ctx, id); err != nil {
		return err
	}
	e.reg.ForgetCachedPermissions(ctx)
	return nil
}

// CreateRole inserts a new role. It fails with store.ErrRoleAlreadyExists
// when the (name, tenant, team) triple is taken.
func (e *Engine) CreateRole(ctx context.Context, name, tenantName string) (store.Role, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return store.Role{}, err
	}
	return e.store.CreateRole(ctx, name, tenantName, e.teamID(ctx))
}

// FindOrCreateRole returns the existing role for (name, tenant, team) or
// creates it. Idempotent.
func (e *Engine) FindOrCreateRole(ctx context.Context, name, tenantName string) (store.Role, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return store.Role{}, err
	}
	return e.store.FindOrCreateRole(ctx, name, tenantName, e.teamID(ctx))
}

// DeleteRole removes a role, its permission set and every assignment of it,
// then drops all memoized wildcard indexes since any subject may have
// reached permissions through it. Deleting an unknown id is a no-op.
func (e *Engine) DeleteRole(ctx context.Context, id int64) error {
	if err := e.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	e.reg.ForgetAllWildcardIndexes()
	return nil
}

// resolvePermissionIDs resolves permission references to ids, rejecting
// cross-tenant grants and deduplicating the input set.
func (e *Engine) resolvePermissionIDs(ctx context.Context, subject Subject, tenantName string, permissions []any) ([]int64, error) {
	seen := make(map[int64]struct{}, len(permissions))
	var ids []int64
	for _, p := range permissions {
		ref, err := Classify(p)
		if err != nil {
			return nil, err
		}
		perm, err := e.resolvePermission(ctx, ref, tenantName)
		if err != nil {
			return nil, err
		}
		if !subjectSharesTenant(subject, perm.TenantName) {
			return nil, ErrTenantMismatch
		}
		if _, ok := seen[perm.ID]; ok {
			continue
		}
		seen[perm.ID] = struct{}{}
		ids = append(ids, perm.ID)
	}
	return ids, nil
}

// withoutHeldPermissions drops ids the subject already holds in tenantName.
func (e *Engine) withoutHeldPermissions(ctx context.Context, subject Subject, tenantName string, ids []int64) ([]int64, error) {
	current, err := e.listDirect(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}
	held := make(map[int64]struct{}, len(current))
	for _, p := range current {
		held[p.ID] = struct{}{}
	}

	out := ids[:0]
	for _, id := range ids {
		if _, ok := held[id]; ok {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (e *Engine) attachPermissions(ctx context.Context, subject Subject, tenantName string, ids []int64) error {
	if roleID, ok := roleSubjectID(subject); ok {
		return e.store.AttachRolePermissions(ctx, roleID, ids)
	}
	return e.store.AttachPermissions(ctx, subject.SubjectRef(), tenantName, ids)
}

func (e *Engine) detachAllPermissions(ctx context.Context, subject Subject, tenantName string) error {
	if roleID, ok := roleSubjectID(subject); ok {
		return e.store.DetachAllRolePermissions(ctx, roleID)
	}
	return e.store.DetachAllPermissions(ctx, subject.SubjectRef(), tenantName)
}

func (e *Engine) queuePending(subject Subject, grant pendingGrant) {
	ref := subject.SubjectRef()
	e.mu.Lock()
	e.pending[ref] = append(e.pending[ref], grant)
	e.mu.Unlock()
}

// invalidateAfterPermissionChange drops the subject's memoized wildcard
// indexes. When the subject is a role the global cache goes too: the role's
// permission set shapes what every holder of the role can do.
func (e *Engine) invalidateAfterPermissionChange(ctx context.Context, subject Subject, tenantName string) {
	ref := subject.SubjectRef()
	e.reg.ForgetWildcardIndex(ref)
	if ref.Type == store.RoleSubjectType {
		e.reg.ForgetCachedPermissions(ctx)
	}
	e.log.DebugContext(ctx, "permission set changed",
		slog.String("subject_type", ref.Type),
		slog.String("subject_id", ref.ID),
		slog.String("tenant", tenantName))
}
