// Package uid provides shape detection for unique identifier strings.
//
// It distinguishes UUID- and ULID-shaped strings from plain names so that a
// generic permission or role reference can be routed to the right lookup
// (find-by-id vs find-by-name) without consulting the store.
//
// Usage:
//
//	uid.IsUID("9b2495b7-7408-4e3f-ae4c-4e7a1f2b6e11") // true (UUID)
//	uid.IsUID("01ARZ3NDEKTSV4RRFFQ69G5FAV")           // true (ULID)
//	uid.IsUID("articles.edit")                        // false (a name)
package uid
