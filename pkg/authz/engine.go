package authz

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/oricodes/tenantperm/pkg/registrar"
	"github.com/oricodes/tenantperm/pkg/store"
	"github.com/oricodes/tenantperm/pkg/tenant"
	"github.com/oricodes/tenantperm/pkg/wildcard"
)

// Engine answers "can subject S do permission P in tenant T" and applies the
// grant and revoke mutations that feed those answers. Permission lookups go
// through the registrar's cached snapshot; role lookups hit the store
// directly.
//
// An Engine is safe for concurrent use.
type Engine struct {
	store   store.Store
	reg     *registrar.Registrar
	log     *slog.Logger
	matcher wildcard.Matcher
	wcOpts  []wildcard.Option
	teamID  func(ctx context.Context) string

	wildcardEnabled bool

	mu      sync.Mutex
	pending map[store.SubjectRef][]pendingGrant
}

// New creates an Engine over a store and a registrar. It fails with
// ErrInvalidWildcardMatcher when wildcard mode is enabled without a matcher,
// so misconfiguration surfaces at startup instead of on the first check.
func New(st store.Store, reg *registrar.Registrar, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:   st,
		reg:     reg,
		log:     slog.Default(),
		teamID:  func(context.Context) string { return "" },
		pending: make(map[store.SubjectRef][]pendingGrant),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.wildcardEnabled && e.matcher == nil {
		return nil, ErrInvalidWildcardMatcher
	}
	return e, nil
}

// HasPermissionTo reports whether subject holds permission within
// tenantName, through a direct grant or any of its roles. In wildcard mode
// the decision delegates entirely to the configured matcher.
//
// An empty tenantName falls back to the tenant carried by ctx. Unresolvable
// permissions fail with store.ErrPermissionNotFound; use CheckPermissionTo
// for a deny-on-not-found variant.
func (e *Engine) HasPermissionTo(ctx context.Context, subject Subject, permission any, tenantName string) (bool, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return false, err
	}

	ref, err := Classify(permission)
	if err != nil {
		return false, err
	}

	if e.wildcardEnabled {
		return e.impliesViaWildcard(ctx, subject, ref, tenantName)
	}

	perm, err := e.resolvePermission(ctx, ref, tenantName)
	if err != nil {
		return false, err
	}

	direct, err := e.holdsDirectly(ctx, subject, perm.ID, tenantName)
	if err != nil || direct {
		return direct, err
	}

	// A role's grants are exactly its own permission set; roles do not
	// inherit through other roles.
	if _, isRole := roleSubjectID(subject); isRole {
		return false, nil
	}

	roles, err := e.store.ListSubjectRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx))
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		perms, err := e.store.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return false, err
		}
		if containsPermissionID(perms, perm.ID) {
			return true, nil
		}
	}
	return false, nil
}

// CheckPermissionTo is the non-throwing variant of HasPermissionTo: an
// unresolvable permission or role denies instead of failing. Every other
// error kind still propagates.
func (e *Engine) CheckPermissionTo(ctx context.Context, subject Subject, permission any, tenantName string) (bool, error) {
	ok, err := e.HasPermissionTo(ctx, subject, permission, tenantName)
	if err != nil {
		if errors.Is(err, store.ErrPermissionNotFound) || errors.Is(err, store.ErrRoleNotFound) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// HasAnyPermission reports whether subject holds at least one of the given
// permissions, short-circuiting on the first hit. Unresolvable permissions
// count as not held.
func (e *Engine) HasAnyPermission(ctx context.Context, subject Subject, tenantName string, permissions ...any) (bool, error) {
	for _, p := range permissions {
		ok, err := e.CheckPermissionTo(ctx, subject, p, tenantName)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether subject holds every one of the given
// permissions, short-circuiting on the first miss.
func (e *Engine) HasAllPermissions(ctx context.Context, subject Subject, tenantName string, permissions ...any) (bool, error) {
	for _, p := range permissions {
		ok, err := e.CheckPermissionTo(ctx, subject, p, tenantName)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasDirectPermission reports whether subject holds permission through a
// direct grant, ignoring roles.
func (e *Engine) HasDirectPermission(ctx context.Context, subject Subject, permission any, tenantName string) (bool, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return false, err
	}
	ref, err := Classify(permission)
	if err != nil {
		return false, err
	}
	perm, err := e.resolvePermission(ctx, ref, tenantName)
	if err != nil {
		return false, err
	}
	return e.holdsDirectly(ctx, subject, perm.ID, tenantName)
}

// HasAnyDirectPermission reports whether subject directly holds at least one
// of the given permissions.
func (e *Engine) HasAnyDirectPermission(ctx context.Context, subject Subject, tenantName string, permissions ...any) (bool, error) {
	for _, p := range permissions {
		ok, err := e.HasDirectPermission(ctx, subject, p, tenantName)
		if err != nil && !errors.Is(err, store.ErrPermissionNotFound) {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllDirectPermissions reports whether subject directly holds every one
// of the given permissions.
func (e *Engine) HasAllDirectPermissions(ctx context.Context, subject Subject, tenantName string, permissions ...any) (bool, error) {
	for _, p := range permissions {
		ok, err := e.HasDirectPermission(ctx, subject, p, tenantName)
		if err != nil {
			if errors.Is(err, store.ErrPermissionNotFound) {
				return false, nil
			}
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// GetDirectPermissions returns the permissions granted directly to subject
// within tenantName, sorted by name.
func (e *Engine) GetDirectPermissions(ctx context.Context, subject Subject, tenantName string) ([]store.Permission, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return nil, err
	}
	perms, err := e.listDirect(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}
	sortPermissions(perms)
	return perms, nil
}

// GetPermissionsViaRoles returns the permissions subject reaches through its
// roles within tenantName, sorted by name and deduplicated.
func (e *Engine) GetPermissionsViaRoles(ctx context.Context, subject Subject, tenantName string) ([]store.Permission, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return nil, err
	}
	perms, err := e.listViaRoles(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}
	sortPermissions(perms)
	return perms, nil
}

// GetAllPermissions returns the union of subject's direct and role-derived
// permissions within tenantName, sorted by name and deduplicated.
func (e *Engine) GetAllPermissions(ctx context.Context, subject Subject, tenantName string) ([]store.Permission, error) {
	tenantName, err := e.resolveTenant(ctx, tenantName)
	if err != nil {
		return nil, err
	}

	direct, err := e.listDirect(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}
	viaRoles, err := e.listViaRoles(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(direct)+len(viaRoles))
	out := make([]store.Permission, 0, len(direct)+len(viaRoles))
	for _, p := range append(direct, viaRoles...) {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	sortPermissions(out)
	return out, nil
}

// GetPermissionNames returns the names of GetAllPermissions.
func (e *Engine) GetPermissionNames(ctx context.Context, subject Subject, tenantName string) ([]string, error) {
	perms, err := e.GetAllPermissions(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = p.Name
	}
	return names, nil
}

// impliesViaWildcard answers the check through the subject's memoized
// pattern index. Names are matched as given; id and uid references resolve
// to their row first so not-found still surfaces.
func (e *Engine) impliesViaWildcard(ctx context.Context, subject Subject, ref Ref, tenantName string) (bool, error) {
	name := ref.name
	if ref.kind != refName {
		perm, err := e.resolvePermission(ctx, ref, tenantName)
		if err != nil {
			return false, err
		}
		name = perm.Name
	}

	idx, err := e.reg.WildcardIndexFor(ctx, subject.SubjectRef(), tenantName, func(ctx context.Context) (*wildcard.Index, error) {
		return e.buildWildcardIndex(ctx, subject, tenantName)
	})
	if err != nil {
		return false, err
	}
	return e.matcher.Implies(name, tenantName, idx), nil
}

func (e *Engine) buildWildcardIndex(ctx context.Context, subject Subject, tenantName string) (*wildcard.Index, error) {
	direct, err := e.listDirect(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}
	viaRoles, err := e.listViaRoles(ctx, subject, tenantName)
	if err != nil {
		return nil, err
	}

	held := make([]wildcard.Held, 0, len(direct)+len(viaRoles))
	for _, p := range append(direct, viaRoles...) {
		held = append(held, wildcard.Held{Name: p.Name, TenantName: p.TenantName})
	}
	return wildcard.NewIndex(held, e.wcOpts...), nil
}

// listDirect returns the subject's directly granted permissions. For a role
// subject that is the role's own permission set.
func (e *Engine) listDirect(ctx context.Context, subject Subject, tenantName string) ([]store.Permission, error) {
	if roleID, ok := roleSubjectID(subject); ok {
		return e.store.ListRolePermissions(ctx, roleID)
	}
	return e.store.ListDirectPermissions(ctx, subject.SubjectRef(), tenantName)
}

func (e *Engine) listViaRoles(ctx context.Context, subject Subject, tenantName string) ([]store.Permission, error) {
	if _, isRole := roleSubjectID(subject); isRole {
		return nil, nil
	}

	roles, err := e.store.ListSubjectRoles(ctx, subject.SubjectRef(), tenantName, e.teamID(ctx))
	if err != nil {
		return nil, err
	}

	var out []store.Permission
	seen := make(map[int64]struct{})
	for _, role := range roles {
		perms, err := e.store.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

func (e *Engine) holdsDirectly(ctx context.Context, subject Subject, permissionID int64, tenantName string) (bool, error) {
	perms, err := e.listDirect(ctx, subject, tenantName)
	if err != nil {
		return false, err
	}
	return containsPermissionID(perms, permissionID), nil
}

// resolvePermission turns a classified reference into the canonical cached
// row for tenantName.
func (e *Engine) resolvePermission(ctx context.Context, ref Ref, tenantName string) (store.Permission, error) {
	switch ref.kind {
	case refPermission:
		if ref.permission.TenantName != tenantName {
			return store.Permission{}, store.ErrPermissionNotFound
		}
		return ref.permission, nil
	case refID:
		return e.reg.GetPermission(ctx, registrar.Filter{ID: &ref.id, TenantName: &tenantName})
	case refUID:
		parsed, err := uuid.Parse(ref.uid)
		if err != nil {
			// ULID-shaped uids have no matching row in this schema.
			return store.Permission{}, store.ErrPermissionNotFound
		}
		return e.reg.GetPermission(ctx, registrar.Filter{UID: &parsed, TenantName: &tenantName})
	case refName:
		return e.reg.GetPermission(ctx, registrar.Filter{Name: &ref.name, TenantName: &tenantName})
	default:
		return store.Permission{}, ErrInvalidReferenceType
	}
}

// resolveRole turns a classified reference into a role row for tenantName.
func (e *Engine) resolveRole(ctx context.Context, ref Ref, tenantName string) (store.Role, error) {
	switch ref.kind {
	case refRole:
		if ref.role.TenantName != tenantName {
			return store.Role{}, store.ErrRoleNotFound
		}
		return ref.role, nil
	case refID:
		return e.store.FindRoleByID(ctx, ref.id, tenantName)
	case refUID:
		if _, err := uuid.Parse(ref.uid); err != nil {
			// ULID-shaped uids have no matching row in this schema.
			return store.Role{}, store.ErrRoleNotFound
		}
		return e.store.FindRoleByUID(ctx, ref.uid, tenantName)
	case refName:
		return e.store.FindRoleByName(ctx, ref.name, tenantName, e.teamID(ctx))
	default:
		return store.Role{}, ErrInvalidReferenceType
	}
}

func (e *Engine) resolveTenant(ctx context.Context, tenantName string) (string, error) {
	if tenantName != "" {
		return tenantName, nil
	}
	if name, ok := tenant.FromContext(ctx); ok {
		return name, nil
	}
	return "", tenant.ErrNoTenantInContext
}

func containsPermissionID(perms []store.Permission, id int64) bool {
	for _, p := range perms {
		if p.ID == id {
			return true
		}
	}
	return false
}

func sortPermissions(perms []store.Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
}
