// Package store defines the relational backing of the authorization engine:
// permission and role rows, the tenant-scoped association pivots linking
// them to subjects, and the Store interfaces the rest of the system consumes.
//
// Two implementations ship with the package. Postgres (pgx) is the
// production store; its schema lives in the goose migrations under pkg/pg.
// Memory is a mutex-guarded map-based store with identical semantics, used
// by tests and small single-process deployments.
//
// Tenant scoping follows the pivot model: the tenant name is recorded on the
// association row itself, not only on the permission/role row, so one global
// permission definition can be granted to a subject within a specific tenant
// context and remain invisible in every other tenant.
package store
