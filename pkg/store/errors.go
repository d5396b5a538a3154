package store

import "errors"

var (
	// ErrPermissionNotFound is returned when a permission cannot be resolved
	// within the given tenant.
	ErrPermissionNotFound = errors.New("permission not found for tenant")

	// ErrRoleNotFound is returned when a role cannot be resolved within the
	// given tenant.
	ErrRoleNotFound = errors.New("role not found for tenant")

	// ErrPermissionAlreadyExists is returned by CreatePermission when the
	// (name, tenant) pair is already taken.
	ErrPermissionAlreadyExists = errors.New("permission already exists for tenant")

	// ErrRoleAlreadyExists is returned by CreateRole when the
	// (name, tenant, team) triple is already taken.
	ErrRoleAlreadyExists = errors.New("role already exists for tenant")
)
