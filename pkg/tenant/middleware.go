package tenant

import "net/http"

// ErrorHandler handles tenant resolution failures.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}

// Middleware creates HTTP middleware that resolves the tenant name from
// incoming requests and adds it to the request context. Requests without a
// tenant name pass through unchanged.
func Middleware(resolver Resolver, errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, err := resolver.Resolve(r)
			if err != nil {
				errorHandler(w, r, err)
				return
			}

			if name == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithTenant(r.Context(), name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant creates middleware that ensures a tenant name is present in
// the context. This is useful for protecting routes that require tenant
// context.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
