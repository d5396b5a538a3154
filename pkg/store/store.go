package store

import "context"

// PermissionStore provides CRUD over permission rows.
//
// FindOrCreatePermission must be atomic with respect to the (name, tenant)
// uniqueness invariant: concurrent first-time creation under the same key
// must yield a single row, never duplicates.
type PermissionStore interface {
	// ListPermissions returns every permission row across all tenants.
	// The registrar uses this to build the cache snapshot.
	ListPermissions(ctx context.Context) ([]Permission, error)

	// CreatePermission inserts a new permission, failing with
	// ErrPermissionAlreadyExists when (name, tenant) is taken.
	CreatePermission(ctx context.Context, name, tenantName string) (Permission, error)

	// FindOrCreatePermission returns the existing row for (name, tenant) or
	// creates it. Idempotent.
	FindOrCreatePermission(ctx context.Context, name, tenantName string) (Permission, error)

	// DeletePermission removes a permission and detaches every association
	// referring to it. Deleting an unknown id is a no-op.
	DeletePermission(ctx context.Context, id int64) error
}

// RoleStore provides CRUD and lookup over role rows. Unlike permissions,
// roles are not snapshot-cached, so lookups hit the store directly.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]Role, error)

	// FindRoleByID resolves a role by numeric id within a tenant.
	FindRoleByID(ctx context.Context, id int64, tenantName string) (Role, error)

	// FindRoleByUID resolves a role by its uid within a tenant.
	FindRoleByUID(ctx context.Context, uid string, tenantName string) (Role, error)

	// FindRoleByName resolves a role by name within (tenant, team).
	FindRoleByName(ctx context.Context, name, tenantName, teamID string) (Role, error)

	// CreateRole inserts a new role, failing with ErrRoleAlreadyExists when
	// (name, tenant, team) is taken.
	CreateRole(ctx context.Context, name, tenantName, teamID string) (Role, error)

	// FindOrCreateRole returns the existing row for (name, tenant, team) or
	// creates it. Idempotent.
	FindOrCreateRole(ctx context.Context, name, tenantName, teamID string) (Role, error)

	// DeleteRole removes a role, its permission set and every subject
	// association referring to it. Deleting an unknown id is a no-op.
	DeleteRole(ctx context.Context, id int64) error
}

// AssociationStore mutates and reads the many-to-many links between
// subjects, permissions and roles. Every association row carries the tenant
// it was granted in (pivot-level tenant scoping), so the same permission row
// can be granted in one tenant context and absent in another.
type AssociationStore interface {
	ListDirectPermissions(ctx context.Context, subject SubjectRef, tenantName string) ([]Permission, error)
	ListSubjectRoles(ctx context.Context, subject SubjectRef, tenantName, teamID string) ([]Role, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error)

	// AttachPermissions links permissions to a subject within a tenant.
	// Already-attached ids are skipped, not errors.
	AttachPermissions(ctx context.Context, subject SubjectRef, tenantName string, permissionIDs []int64) error
	DetachPermission(ctx context.Context, subject SubjectRef, tenantName string, permissionID int64) error
	DetachAllPermissions(ctx context.Context, subject SubjectRef, tenantName string) error

	AttachRoles(ctx context.Context, subject SubjectRef, tenantName, teamID string, roleIDs []int64) error
	DetachRole(ctx context.Context, subject SubjectRef, tenantName string, roleID int64) error
	DetachAllRoles(ctx context.Context, subject SubjectRef, tenantName string) error

	// AttachRolePermissions links permissions to a role's own permission set.
	AttachRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	DetachRolePermission(ctx context.Context, roleID, permissionID int64) error
	DetachAllRolePermissions(ctx context.Context, roleID int64) error
}

// Store combines all persistence concerns of the authorization engine.
type Store interface {
	PermissionStore
	RoleStore
	AssociationStore
}
