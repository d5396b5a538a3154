// Package httpguard provides route middleware enforcing permission and role
// checks over the authorization engine.
//
// The middleware is framework-agnostic func(http.Handler) http.Handler, so
// it slots into chi and the standard library alike. The tenant comes from
// the request context; chain tenant.Middleware before any guard:
//
//	guard := httpguard.New(eng, subjectFromSession)
//
//	r := chi.NewRouter()
//	r.Use(tenant.Middleware(tenant.NewHeaderResolver("X-Tenant"), nil))
//	r.With(guard.RequirePermission("invoices.read")).Get("/invoices", listInvoices)
//	r.With(guard.RequireRole("admin")).Mount("/admin", adminRouter)
//
// Unauthenticated requests get 401, denied ones 403, and unexpected engine
// failures 500. All three responses are replaceable per guard.
package httpguard
