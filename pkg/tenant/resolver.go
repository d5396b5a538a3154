package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Resolver extracts a tenant name from HTTP requests.
type Resolver interface {
	// Resolve extracts the tenant name from the request.
	// Returns empty string if no tenant name is found.
	// Returns error if the extraction fails.
	Resolve(r *http.Request) (string, error)
}

// HeaderResolver extracts the tenant name from an HTTP header.
type HeaderResolver struct {
	// HeaderName is the name of the header to read (e.g., "X-Tenant")
	HeaderName string
}

// NewHeaderResolver creates a new header resolver.
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = "X-Tenant"
	}
	return &HeaderResolver{HeaderName: headerName}
}

// Resolve extracts the tenant name from the configured header.
func (r *HeaderResolver) Resolve(req *http.Request) (string, error) {
	return req.Header.Get(r.HeaderName), nil
}

// PathResolver extracts the tenant name from a URL path segment.
type PathResolver struct {
	// Position is the 1-based position in the path (e.g., 2 for /tenants/{name}/...)
	Position int
}

// NewPathResolver creates a new path resolver.
func NewPathResolver(position int) *PathResolver {
	return &PathResolver{Position: position}
}

// Resolve extracts the tenant name from the specified path position.
func (r *PathResolver) Resolve(req *http.Request) (string, error) {
	if r.Position < 1 {
		return "", errors.New("invalid path position")
	}

	path := strings.TrimPrefix(req.URL.Path, "/")
	path = strings.TrimSuffix(path, "/")

	if path == "" {
		return "", nil
	}

	parts := strings.Split(path, "/")
	if r.Position > len(parts) {
		return "", nil
	}

	return parts[r.Position-1], nil
}

// SubdomainResolver extracts the tenant name from the request subdomain.
type SubdomainResolver struct {
	// Suffix to strip from the host (e.g., ".saas.com")
	// If empty, only the first subdomain part is used.
	Suffix string
}

// NewSubdomainResolver creates a new subdomain resolver.
func NewSubdomainResolver(suffix string) *SubdomainResolver {
	return &SubdomainResolver{Suffix: suffix}
}

// Resolve extracts the tenant name from the subdomain (e.g., "acme" from "acme.app.com").
func (r *SubdomainResolver) Resolve(req *http.Request) (string, error) {
	host := req.Host

	// Remove port if present
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}

	// A tenant subdomain needs at least subdomain.domain.tld
	if len(strings.Split(host, ".")) < 3 {
		return "", nil
	}

	if r.Suffix != "" && strings.HasSuffix(host, r.Suffix) && len(host) > len(r.Suffix) {
		host = host[:len(host)-len(r.Suffix)]
	}

	parts := strings.Split(host, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "", nil
	}

	// Skip www prefix
	subdomain := parts[0]
	if subdomain == "www" {
		if len(parts) < 2 {
			return "", nil
		}
		subdomain = parts[1]
	}

	return subdomain, nil
}

// CompositeResolver tries multiple resolvers in order until one succeeds.
type CompositeResolver struct {
	Resolvers []Resolver
}

// NewCompositeResolver creates a new composite resolver.
func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{Resolvers: resolvers}
}

// Resolve tries each resolver in order, returning the first non-empty result.
func (c *CompositeResolver) Resolve(r *http.Request) (string, error) {
	var errs []error

	for _, resolver := range c.Resolvers {
		name, err := resolver.Resolve(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if name != "" {
			return name, nil
		}
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("composite resolver errors: %w", errors.Join(errs...))
	}

	return "", nil
}

// ResolverFunc is an adapter to allow the use of ordinary functions as Resolvers.
type ResolverFunc func(r *http.Request) (string, error)

// Resolve calls the function.
func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}
