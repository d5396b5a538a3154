package wildcard

import "strings"

const (
	// DefaultDelimiter separates permission segments (e.g. "posts.42.edit").
	DefaultDelimiter = "."

	// DefaultToken is the wildcard segment that matches any single segment.
	DefaultToken = "*"
)

// Held is one permission a subject holds, with the tenant it was granted in.
type Held struct {
	Name       string
	TenantName string
}

// Option configures index construction.
type Option func(*Index)

// WithDelimiter overrides the segment delimiter.
// Empty values are ignored to keep the index usable.
func WithDelimiter(d string) Option {
	return func(i *Index) {
		if d != "" {
			i.delimiter = d
		}
	}
}

// WithToken overrides the wildcard token.
func WithToken(t string) Option {
	return func(i *Index) {
		if t != "" {
			i.token = t
		}
	}
}

// Index is a per-subject lookup structure over held permission patterns.
// Patterns are pre-split into segments and organized as a trie per tenant so
// repeated implication queries avoid re-parsing the whole permission set.
//
// An Index is immutable after construction. It must be rebuilt whenever the
// subject's permission set changes.
type Index struct {
	delimiter string
	token     string
	tenants   map[string]*node
}

type node struct {
	children map[string]*node
	terminal bool
}

// NewIndex builds an index from the subject's held permissions.
func NewIndex(held []Held, opts ...Option) *Index {
	idx := &Index{
		delimiter: DefaultDelimiter,
		token:     DefaultToken,
		tenants:   make(map[string]*node),
	}
	for _, opt := range opts {
		opt(idx)
	}

	for _, h := range held {
		if h.Name == "" {
			continue
		}
		root, ok := idx.tenants[h.TenantName]
		if !ok {
			root = &node{}
			idx.tenants[h.TenantName] = root
		}
		insert(root, strings.Split(h.Name, idx.delimiter))
	}

	return idx
}

// Delimiter returns the segment delimiter the index was built with.
func (i *Index) Delimiter() string { return i.delimiter }

// Token returns the wildcard token the index was built with.
func (i *Index) Token() string { return i.token }

// Len reports the number of tenants with at least one indexed permission.
func (i *Index) Len() int { return len(i.tenants) }

func insert(n *node, segments []string) {
	for _, seg := range segments {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[seg]
		if !ok {
			child = &node{}
			n.children[seg] = child
		}
		n = child
	}
	n.terminal = true
}

// lookup walks the trie following both the literal segment and the wildcard
// token at every position. A match requires a terminal node at exactly the
// requested depth; prefixes never match implicitly.
func (i *Index) lookup(tenantName string, segments []string) bool {
	root, ok := i.tenants[tenantName]
	if !ok {
		return false
	}
	return walk(root, segments, i.token)
}

func walk(n *node, segments []string, token string) bool {
	if len(segments) == 0 {
		return n.terminal
	}
	if n.children == nil {
		return false
	}
	if child, ok := n.children[segments[0]]; ok {
		if walk(child, segments[1:], token) {
			return true
		}
	}
	if child, ok := n.children[token]; ok {
		return walk(child, segments[1:], token)
	}
	return false
}
