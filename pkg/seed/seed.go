package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oricodes/tenantperm/pkg/authz"
)

// ErrInvalidManifest is returned when a manifest fails validation.
var ErrInvalidManifest = errors.New("invalid seed manifest")

// Manifest declares the permissions and roles to provision per tenant.
type Manifest struct {
	Tenants []Tenant `yaml:"tenants"`
}

// Tenant is one tenant's declared authorization setup.
type Tenant struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	Roles       []Role   `yaml:"roles"`
}

// Role declares a role and the permissions it grants. Permissions listed
// here must also appear in the tenant's permission list.
type Role struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// Parse decodes and validates a YAML manifest.
func Parse(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode seed manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ParseFile reads and parses a manifest from disk.
func ParseFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("open seed manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (m Manifest) validate() error {
	if len(m.Tenants) == 0 {
		return fmt.Errorf("%w: no tenants declared", ErrInvalidManifest)
	}
	for _, t := range m.Tenants {
		if t.Name == "" {
			return fmt.Errorf("%w: tenant without a name", ErrInvalidManifest)
		}
		declared := make(map[string]struct{}, len(t.Permissions))
		for _, p := range t.Permissions {
			if p == "" {
				return fmt.Errorf("%w: tenant %q declares an empty permission", ErrInvalidManifest, t.Name)
			}
			if _, ok := declared[p]; ok {
				return fmt.Errorf("%w: tenant %q declares permission %q twice", ErrInvalidManifest, t.Name, p)
			}
			declared[p] = struct{}{}
		}
		seenRoles := make(map[string]struct{}, len(t.Roles))
		for _, r := range t.Roles {
			if r.Name == "" {
				return fmt.Errorf("%w: tenant %q declares a role without a name", ErrInvalidManifest, t.Name)
			}
			if _, ok := seenRoles[r.Name]; ok {
				return fmt.Errorf("%w: tenant %q declares role %q twice", ErrInvalidManifest, t.Name, r.Name)
			}
			seenRoles[r.Name] = struct{}{}
			for _, p := range r.Permissions {
				if _, ok := declared[p]; !ok {
					return fmt.Errorf("%w: tenant %q role %q references undeclared permission %q",
						ErrInvalidManifest, t.Name, r.Name, p)
				}
			}
		}
	}
	return nil
}

// Apply provisions the manifest through the engine. Rows are find-or-create
// and role permission sets are synced to the declared state, so applying the
// same manifest repeatedly is idempotent and applying a changed one
// converges the stores to it. Subject grants are out of scope; only the
// permission and role universes are seeded.
func Apply(ctx context.Context, eng *authz.Engine, m Manifest, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	for _, t := range m.Tenants {
		for _, name := range t.Permissions {
			if _, err := eng.FindOrCreatePermission(ctx, name, t.Name); err != nil {
				return fmt.Errorf("seed permission %q for tenant %q: %w", name, t.Name, err)
			}
		}

		for _, r := range t.Roles {
			role, err := eng.FindOrCreateRole(ctx, r.Name, t.Name)
			if err != nil {
				return fmt.Errorf("seed role %q for tenant %q: %w", r.Name, t.Name, err)
			}

			grants := make([]any, len(r.Permissions))
			for i, p := range r.Permissions {
				grants[i] = p
			}
			if err := eng.SyncPermissions(ctx, authz.AsSubject(role), t.Name, grants...); err != nil {
				return fmt.Errorf("sync role %q permissions for tenant %q: %w", r.Name, t.Name, err)
			}
		}

		log.InfoContext(ctx, "seeded tenant authorization",
			slog.String("tenant", t.Name),
			slog.Int("permissions", len(t.Permissions)),
			slog.Int("roles", len(t.Roles)))
	}
	return nil
}
