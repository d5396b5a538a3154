// Package wildcard implements pattern-based permission implication.
//
// A wildcard permission such as "posts.*.edit" grants every concrete
// permission whose segments match position by position, with "*" standing in
// for exactly one segment. Matching is strict about shape: "posts.*.edit"
// implies "posts.42.edit" but neither "posts.edit" (segment count mismatch)
// nor "posts.42.delete" (literal mismatch).
//
// A subject's held permissions are compiled into an Index, a per-tenant
// segment trie that makes repeated implication queries cheap. The index is a
// derived structure: rebuild it whenever the subject's permission set
// changes.
//
//	idx := wildcard.NewIndex([]wildcard.Held{
//	    {Name: "posts.*.edit", TenantName: "acme"},
//	})
//	m := wildcard.NewSegmentMatcher()
//	m.Implies("posts.42.edit", "acme", idx) // true
//	m.Implies("posts.42.edit", "globex", idx) // false: wrong tenant
//
// The delimiter and wildcard token are configurable per index via
// WithDelimiter and WithToken.
package wildcard
