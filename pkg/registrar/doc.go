// Package registrar caches the permission universe so authorization checks
// avoid a database round-trip per decision.
//
// The registrar keeps three layers of state:
//
//   - a persisted snapshot in a shared cache store (Redis in production),
//     serialized with short field aliases to keep the payload small, expiring
//     after a configurable TTL;
//   - an in-process memo of the hydrated collection, valid for one unit of
//     work (a request, a job) and cleared at work-unit boundaries via
//     ClearPermissionsCollection;
//   - per-subject wildcard permission indexes, memoized until the subject's
//     permission set changes.
//
// Any write affecting permissions must call ForgetCachedPermissions, which
// synchronously deletes the snapshot and all in-process state; the next read
// lazily rebuilds. A snapshot without the alias table (older wire format) is
// treated as invalid and rebuilt.
//
// Concurrent cache misses across processes may each compute the snapshot;
// this is an accepted last-write-wins race, not guarded by any distributed
// lock, because every writer produces an equivalent snapshot.
package registrar
