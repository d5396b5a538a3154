// Package authz is the tenant-scoped authorization decision engine. It
// combines direct grants, role-derived grants and, optionally, wildcard
// pattern implication into a single allow/deny answer per
// (subject, permission, tenant) triple.
//
// Permission rows are read through the registrar's cached snapshot, so
// repeated checks within a unit of work cost no store round-trips. Role rows
// are few and uncached. All mutations (grant, revoke, sync, create, delete)
// invalidate the affected caches synchronously.
//
//	eng, err := authz.New(st, reg)
//	if err != nil {
//		return err
//	}
//	ok, err := eng.CheckPermissionTo(ctx, user, "invoices.read", "acme")
//
// Permission and role references are loosely typed: an id, a uuid or ulid
// shaped string, a plain name, an enum-like fmt.Stringer or an already
// resolved row all work. See Classify.
//
// Wildcard mode replaces the direct and role checks entirely:
//
//	eng, err := authz.New(st, reg,
//		authz.WithWildcardMatching(wildcard.NewSegmentMatcher()))
//
// A subject holding "posts.*.edit" then passes checks for "posts.42.edit"
// within the same tenant.
package authz
