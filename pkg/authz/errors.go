package authz

import "errors"

var (
	// ErrTenantMismatch is returned when a grant would associate a subject
	// with a permission or role belonging to a tenant the subject is not a
	// member of.
	ErrTenantMismatch = errors.New("subject does not belong to the tenant of the given permission or role")

	// ErrInvalidWildcardMatcher is returned by New when wildcard mode is
	// enabled without a matcher implementation. It is a configuration error
	// and surfaces at construction, never per call.
	ErrInvalidWildcardMatcher = errors.New("wildcard mode enabled without a matcher implementation")

	// ErrInvalidReferenceType is returned when a permission or role
	// reference is neither an integer id, a uid string, a name, nor an
	// already resolved row.
	ErrInvalidReferenceType = errors.New("invalid permission or role reference")
)
