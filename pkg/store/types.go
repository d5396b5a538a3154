package store

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a named capability scoped to a tenant.
// Names are unique within a tenant. Cached copies handed out by the
// registrar are point-in-time snapshots and must be treated as immutable.
type Permission struct {
	ID         int64
	UID        uuid.UUID
	Name       string
	TenantName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Role is a named set of permissions scoped to a tenant and, optionally, a
// team within that tenant. Names are unique within (tenant, team).
type Role struct {
	ID         int64
	UID        uuid.UUID
	Name       string
	TenantName string
	TeamID     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SubjectRef identifies any entity that can hold permissions or roles,
// typically a user. Type disambiguates between different subject models
// sharing the association tables (e.g. "user", "api_key").
type SubjectRef struct {
	Type string
	ID   string
}

// RoleSubjectType is the subject type under which roles appear in the
// permission association table when a role itself is granted permissions.
const RoleSubjectType = "role"
