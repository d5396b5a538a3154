package httpguard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/oricodes/tenantperm/pkg/authz"
	"github.com/oricodes/tenantperm/pkg/tenant"
)

// SubjectResolver extracts the acting subject from a request, reporting
// false when the request is unauthenticated.
type SubjectResolver func(r *http.Request) (authz.Subject, bool)

// Guard builds route middleware over an authorization engine. The tenant is
// taken from the request context, so tenant.Middleware must run earlier in
// the chain (or every check fails with no tenant in context, which denies).
type Guard struct {
	engine  *authz.Engine
	resolve SubjectResolver
	log     *slog.Logger

	unauthorized http.Handler
	forbidden    http.Handler
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Guard) {
		if log != nil {
			g.log = log
		}
	}
}

// WithUnauthorizedHandler overrides the response for unauthenticated
// requests.
func WithUnauthorizedHandler(h http.Handler) Option {
	return func(g *Guard) {
		if h != nil {
			g.unauthorized = h
		}
	}
}

// WithForbiddenHandler overrides the response for denied requests.
func WithForbiddenHandler(h http.Handler) Option {
	return func(g *Guard) {
		if h != nil {
			g.forbidden = h
		}
	}
}

// New creates a Guard. The resolver is required.
func New(engine *authz.Engine, resolve SubjectResolver, opts ...Option) *Guard {
	if resolve == nil {
		panic("httpguard.New: subject resolver is required")
	}

	g := &Guard{
		engine:  engine,
		resolve: resolve,
		log:     slog.Default(),
		unauthorized: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}),
		forbidden: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequirePermission admits requests whose subject holds at least one of the
// given permissions in the request's tenant.
func (g *Guard) RequirePermission(permissions ...any) func(http.Handler) http.Handler {
	return g.middleware(func(r *http.Request, subject authz.Subject) (bool, error) {
		return g.engine.HasAnyPermission(r.Context(), subject, "", permissions...)
	})
}

// RequireRole admits requests whose subject holds at least one of the given
// roles in the request's tenant.
func (g *Guard) RequireRole(roles ...any) func(http.Handler) http.Handler {
	return g.middleware(func(r *http.Request, subject authz.Subject) (bool, error) {
		return g.engine.HasAnyRole(r.Context(), subject, "", roles...)
	})
}

// RequireRoleOrPermission admits requests satisfying either RequireRole over
// roles or RequirePermission over permissions.
func (g *Guard) RequireRoleOrPermission(roles []any, permissions []any) func(http.Handler) http.Handler {
	return g.middleware(func(r *http.Request, subject authz.Subject) (bool, error) {
		ok, err := g.engine.HasAnyRole(r.Context(), subject, "", roles...)
		if err != nil || ok {
			return ok, err
		}
		return g.engine.HasAnyPermission(r.Context(), subject, "", permissions...)
	})
}

func (g *Guard) middleware(allowed func(*http.Request, authz.Subject) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := g.resolve(r)
			if !ok {
				g.unauthorized.ServeHTTP(w, r)
				return
			}

			ok, err := allowed(r, subject)
			if err != nil {
				// A request without a resolved tenant cannot hold anything.
				if errors.Is(err, tenant.ErrNoTenantInContext) {
					g.forbidden.ServeHTTP(w, r)
					return
				}
				g.log.ErrorContext(r.Context(), "authorization check failed",
					slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !ok {
				g.forbidden.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
