// Package tenant carries the current tenant name through request contexts
// and resolves it from incoming HTTP requests.
//
// Authorization checks that omit an explicit tenant name fall back to the
// name stored in the context, so resolving the tenant once per request at
// the edge keeps handlers free of tenant plumbing:
//
//	resolver := tenant.NewCompositeResolver(
//		tenant.NewHeaderResolver("X-Tenant"),
//		tenant.NewSubdomainResolver(".app.example.com"),
//	)
//	r.Use(tenant.Middleware(resolver, nil))
//
// Downstream code reads the name with FromContext or relies on the
// authorization engine's context fallback.
package tenant
