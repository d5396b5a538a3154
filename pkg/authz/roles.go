package authz

import (
	"context"
	"log/slog"
	"sort"

	"github.com/oricodes/tenantperm/pkg/store"
)

// GetRoles returns the roles assigned to subject within tenantName, sorted
// by name.
func (e *Engine) GetRoles(ctx context.Context, subject Subject, tenantName string) ([]store.Role, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return nil, err
	}
	roles, err := e.store.ListSubjectRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx))
	if err != nil {
		return nil, err
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// GetRoleNames returns the names of GetRoles.
func (e *Engine) GetRoleNames(ctx context.Context, subject Subject, tenantName string) ([]string, error) {
	roles, err := e.GetRoles(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names, nil
}

// HasRole reports whether subject holds role within tenantName. The role
// reference is matched against the subject's assigned set; a role that does
// not exist simply reports false.
func (e *Engine) HasRole(ctx context.Context, subject Subject, role any, tenantName string) (bool, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return false, err
	}
	ref, err := Classify(role)
	if err != nil {
		return false, err
	}

	roles, err := e.store.ListSubjectRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx))
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if roleMatchesRef(r, ref) {
			return true, nil
		}
	}
	return false, nil
}

// HasAnyRole reports whether subject holds at least one of the given roles.
func (e *Engine) HasAnyRole(ctx context.Context, subject Subject, tenantName string, roles ...any) (bool, error) {
	for _, r := range roles {
		ok, err := e.HasRole(ctx, subject, r, tenantName)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllRoles reports whether subject holds every one of the given roles.
func (e *Engine) HasAllRoles(ctx context.Context, subject Subject, tenantName string, roles ...any) (bool, error) {
	for _, r := range roles {
		ok, err := e.HasRole(ctx, subject, r, tenantName)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasExactRoles reports whether subject's role set within tenantName is
// exactly the given set: every requested role held and no extras.
func (e *Engine) HasExactRoles(ctx context.Context, subject Subject, tenantName string, roles ...any) (bool, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return false, err
	}

	assigned, err := e.store.ListSubjectRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx))
	if err != nil {
		return false, err
	}

	matched := make(map[int64]struct{}, len(roles))
	for _, r := range roles {
		ref, err := Classify(r)
		if err != nil {
			return false, err
		}
		found := false
		for _, a := range assigned {
			if roleMatchesRef(a, ref) {
				matched[a.ID] = struct{}{}
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return len(matched) == len(assigned), nil
}

// AssignRole assigns the given roles to subject within tenantName. Inputs
// resolve through the store; unresolvable roles fail with
// store.ErrRoleNotFound and roles from a tenant the subject does not belong
// to fail with ErrTenantMismatch. Already assigned roles are skipped.
//
// Assignments to a not yet persisted subject are queued, see
// CommitPendingGrants.
func (e *Engine) AssignRole(ctx context.Context, subject Subject, tenantName string, roles ...any) error {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return err
	}

	ids, err := e.resolveRoleIDs(ctx, subject, tenantName, roles)
	if err != nil {
		return err
	}
	ids, err = e.withoutHeldRoles(ctx, subject, tenantName, ids)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if !isPersisted(subject) {
		e.queuePending(subject, pendingGrant{tenantName: tenantName, teamID: e.teamID(ctx), roleIDs: ids})
		return nil
	}

	if err := e.store.AttachRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx), ids); err != nil {
		return err
	}
	e.invalidateAfterRoleChange(ctx, subject, tenantName)
	return nil
}

// RemoveRole detaches role from subject within tenantName. Removing a role
// that was never assigned is a no-op.
func (e *Engine) RemoveRole(ctx context.Context, subject Subject, tenantName string, role any) error {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return err
	}
	ref, err := Classify(role)
	if err != nil {
		return err
	}
	resolved, err := e.resolveRole(ctx, ref, tenantName)
	if err != nil {
		return err
	}

	if err := e.store.DetachRole(ctx, subject.SubjectRef(), tenantName, resolved.ID); err != nil {
		return err
	}
	e.invalidateAfterRoleChange(ctx, subject, tenantName)
	return nil
}

// SyncRoles replaces subject's role set within tenantName with exactly the
// given roles.
func (e *Engine) SyncRoles(ctx context.Context, subject Subject, tenantName string, roles ...any) error {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return err
	}

	ids, err := e.resolveRoleIDs(ctx, subject, tenantName, roles)
	if err != nil {
		return err
	}

	if !isPersisted(subject) {
		e.queuePending(subject, pendingGrant{tenantName: tenantName, teamID: e.teamID(ctx), roleIDs: ids, syncRoles: true})
		return nil
	}

	if err := e.store.DetachAllRoles(ctx, subject.SubjectRef(), tenantName); err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := e.store.AttachRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx), ids); err != nil {
			return err
		}
	}
	e.invalidateAfterRoleChange(ctx, subject, tenantName)
	return nil
}

// resolveRoleIDs resolves role references to ids, rejecting cross-tenant
// assignment and deduplicating the input set.
func (e *Engine) resolveRoleIDs(ctx context.Context, subject Subject, tenantName string, roles []any) ([]int64, error) {
	seen := make(map[int64]struct{}, len(roles))
	var ids []int64
	for _, r := range roles {
		ref, err := Classify(r)
		if err != nil {
			return nil, err
		}
		resolved, err := e.resolveRole(ctx, ref, tenantName)
		if err != nil {
			return nil, err
		}
		if !subjectSharesTenant(subject, resolved.TenantName) {
			return nil, ErrTenantMismatch
		}
		if _, ok := seen[resolved.ID]; ok {
			continue
		}
		seen[resolved.ID] = struct{}{}
		ids = append(ids, resolved.ID)
	}
	return ids, nil
}

// withoutHeldRoles drops ids the subject already holds in tenantName.
func (e *Engine) withoutHeldRoles(ctx context.Context, subject Subject, tenantName string, ids []int64) ([]int64, error) {
	current, err := e.store.ListSubjectRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx))
	if err != nil {
		return nil, err
	}
	held := make(map[int64]struct{}, len(current))
	for _, r := range current {
		held[r.ID] = struct{}{}
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

// invalidateAfterRoleChange drops the subject's memoized wildcard indexes;
// role membership changes what patterns the subject holds.
func (e *Engine) invalidateAfterRoleChange(ctx context.Context, subject Subject, tenantName string) {
	e.reg.ForgetWildcardIndex(subject.SubjectRef())
	e.log.DebugContext(ctx, "role set changed",
		slog.String("subject_type", subject.SubjectRef().Type),
		slog.String("subject_id", subject.SubjectRef().ID),
		slog.String("tenant", tenantName))
}

func roleMatchesRef(role store.Role, ref Ref) bool {
	switch ref.kind {
	case refID:
		return role.ID == ref.id
	case refUID:
		return role.UID.String() == ref.uid
	case refName:
		return role.Name == ref.name
	case refRole:
		return role.ID == ref.role.ID
	default:
		return false
	}
}
