package authz

import (
	"context"
	"log/slog"

	"github.com/oricodes/tenantperm/pkg/wildcard"
)

// Config carries the environment-driven engine settings.
type Config struct {
	// WildcardEnabled switches the decision path to wildcard matching.
	// Requires a matcher, see WithWildcardMatching.
	WildcardEnabled bool `env:"PERMISSION_WILDCARD_ENABLED" envDefault:"false"`

	// WildcardDelimiter separates permission segments.
	WildcardDelimiter string `env:"PERMISSION_WILDCARD_DELIMITER" envDefault:"."`

	// WildcardToken is the segment that matches any value at its position.
	WildcardToken string `env:"PERMISSION_WILDCARD_TOKEN" envDefault:"*"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithWildcardMatching enables wildcard mode with the given matcher.
func WithWildcardMatching(m wildcard.Matcher) Option {
	return func(e *Engine) {
		e.wildcardEnabled = true
		e.matcher = m
	}
}

// WithWildcardSyntax overrides the segment delimiter and wildcard token.
func WithWildcardSyntax(delimiter, token string) Option {
	return func(e *Engine) {
		e.wcOpts = nil
		if delimiter != "" {
			e.wcOpts = append(e.wcOpts, wildcard.WithDelimiter(delimiter))
		}
		if token != "" {
			e.wcOpts = append(e.wcOpts, wildcard.WithToken(token))
		}
	}
}

// WithTeamResolver sets the function resolving the current team id from the
// request context. Role lookups and role attachments are scoped by its
// result; the default resolves no team.
func WithTeamResolver(resolve func(ctx context.Context) string) Option {
	return func(e *Engine) {
		if resolve != nil {
			e.teamID = resolve
		}
	}
}

// WithConfig applies an environment-driven Config in one step. Enabling
// wildcard mode through it still requires a matcher from
// WithWildcardMatching; New fails otherwise.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.WildcardEnabled {
			e.wildcardEnabled = true
		}
		WithWildcardSyntax(cfg.WildcardDelimiter, cfg.WildcardToken)(e)
	}
}
