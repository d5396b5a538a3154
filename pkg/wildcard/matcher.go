package wildcard

import "strings"

// Matcher decides whether a subject's held permission patterns imply a
// requested concrete permission within a tenant.
//
// Implementations must be safe for concurrent use; the same matcher instance
// is shared across all authorization checks of a deployment.
type Matcher interface {
	// Implies reports whether any pattern in index satisfies the requested
	// permission for the given tenant.
	Implies(permission, tenantName string, index *Index) bool
}

// SegmentMatcher is the default Matcher. It compares permissions position by
// position: each held segment must equal the requested segment or be the
// wildcard token, and segment counts must be identical.
type SegmentMatcher struct{}

// NewSegmentMatcher returns the default positional segment matcher.
func NewSegmentMatcher() *SegmentMatcher {
	return &SegmentMatcher{}
}

// Implies reports whether the index holds a pattern matching permission in
// tenantName. An empty permission never matches.
func (m *SegmentMatcher) Implies(permission, tenantName string, index *Index) bool {
	if permission == "" || index == nil {
		return false
	}
	return index.lookup(tenantName, strings.Split(permission, index.Delimiter()))
}
