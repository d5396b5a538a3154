package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oricodes/tenantperm/pkg/pg"
)

// Postgres is the production Store implementation backed by a pgx pool.
// Uniqueness is enforced by database constraints; FindOrCreate* use atomic
// insert-or-fetch so concurrent first-time creation under the same key
// cannot produce duplicate rows.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Store over an established connection pool.
// The schema is managed by the migrations shipped with pkg/pg.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const permissionColumns = "id, uid, name, tenant_name, created_at, updated_at"

const roleColumns = "id, uid, name, tenant_name, team_id, created_at, updated_at"

func (s *Postgres) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+permissionColumns+" FROM permissions ORDER BY id")
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func (s *Postgres) CreatePermission(ctx context.Context, name, tenantName string) (Permission, error) {
	row := s.pool.QueryRow(ctx,
		"INSERT INTO permissions (name, tenant_name) VALUES ($1, $2) RETURNING "+permissionColumns,
		name, tenantName)

	p, err := scanPermission(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Permission{}, ErrPermissionAlreadyExists
		}
		return Permission{}, err
	}
	return p, nil
}

func (s *Postgres) FindOrCreatePermission(ctx context.Context, name, tenantName string) (Permission, error) {
	// ON CONFLICT DO NOTHING + fallback select keeps this race-safe without
	// advisory locks: the loser of a concurrent insert reads the winner's row.
	row := s.pool.QueryRow(ctx,
		"INSERT INTO permissions (name, tenant_name) VALUES ($1, $2) "+
			"ON CONFLICT (name, tenant_name) DO NOTHING RETURNING "+permissionColumns,
		name, tenantName)

	p, err := scanPermission(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, err
	}

	row = s.pool.QueryRow(ctx,
		"SELECT "+permissionColumns+" FROM permissions WHERE name = $1 AND tenant_name = $2",
		name, tenantName)
	return scanPermission(row)
}

func (s *Postgres) DeletePermission(ctx context.Context, id int64) error {
	// Association rows are removed by ON DELETE CASCADE.
	_, err := s.pool.Exec(ctx, "DELETE FROM permissions WHERE id = $1", id)
	return err
}

func (s *Postgres) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

func (s *Postgres) FindRoleByID(ctx context.Context, id int64, tenantName string) (Role, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id = $1 AND tenant_name = $2",
		id, tenantName)
	return scanRoleNotFound(row)
}

func (s *Postgres) FindRoleByUID(ctx context.Context, uid string, tenantName string) (Role, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE uid = $1 AND tenant_name = $2",
		uid, tenantName)
	return scanRoleNotFound(row)
}

func (s *Postgres) FindRoleByName(ctx context.Context, name, tenantName, teamID string) (Role, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE name = $1 AND tenant_name = $2 AND team_id = $3",
		name, tenantName, teamID)
	return scanRoleNotFound(row)
}

func (s *Postgres) CreateRole(ctx context.Context, name, tenantName, teamID string) (Role, error) {
	row := s.pool.QueryRow(ctx,
		"INSERT INTO roles (name, tenant_name, team_id) VALUES ($1, $2, $3) RETURNING "+roleColumns,
		name, tenantName, teamID)

	r, err := scanRole(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Role{}, ErrRoleAlreadyExists
		}
		return Role{}, err
	}
	return r, nil
}

func (s *Postgres) FindOrCreateRole(ctx context.Context, name, tenantName, teamID string) (Role, error) {
	row := s.pool.QueryRow(ctx,
		"INSERT INTO roles (name, tenant_name, team_id) VALUES ($1, $2, $3) "+
			"ON CONFLICT (name, tenant_name, team_id) DO NOTHING RETURNING "+roleColumns,
		name, tenantName, teamID)

	r, err := scanRole(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Role{}, err
	}

	row = s.pool.QueryRow(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE name = $1 AND tenant_name = $2 AND team_id = $3",
		name, tenantName, teamID)
	return scanRole(row)
}

func (s *Postgres) DeleteRole(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM roles WHERE id = $1", id)
	return err
}

func (s *Postgres) ListDirectPermissions(ctx context.Context, subject SubjectRef, tenantName string) ([]Permission, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT p.id, p.uid, p.name, p.tenant_name, p.created_at, p.updated_at "+
			"FROM permissions p "+
			"JOIN subject_permissions sp ON sp.permission_id = p.id "+
			"WHERE sp.subject_type = $1 AND sp.subject_id = $2 AND sp.tenant_name = $3 "+
			"ORDER BY p.id",
		subject.Type, subject.ID, tenantName)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func (s *Postgres) ListSubjectRoles(ctx context.Context, subject SubjectRef, tenantName, teamID string) ([]Role, error) {
	// An empty team filter returns every role pivot for the tenant; a team
	// filter additionally admits team-less pivots (tenant-global roles).
	rows, err := s.pool.Query(ctx,
		"SELECT r.id, r.uid, r.name, r.tenant_name, r.team_id, r.created_at, r.updated_at "+
			"FROM roles r "+
			"JOIN subject_roles sr ON sr.role_id = r.id "+
			"WHERE sr.subject_type = $1 AND sr.subject_id = $2 AND sr.tenant_name = $3 "+
			"AND ($4 = '' OR sr.team_id = '' OR sr.team_id = $4) "+
			"ORDER BY r.id",
		subject.Type, subject.ID, tenantName, teamID)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

func (s *Postgres) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT p.id, p.uid, p.name, p.tenant_name, p.created_at, p.updated_at "+
			"FROM permissions p "+
			"JOIN role_permissions rp ON rp.permission_id = p.id "+
			"WHERE rp.role_id = $1 ORDER BY p.id",
		roleID)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func (s *Postgres) AttachPermissions(ctx context.Context, subject SubjectRef, tenantName string, permissionIDs []int64) error {
	for _, id := range permissionIDs {
		if _, err := s.pool.Exec(ctx,
			"INSERT INTO subject_permissions (subject_type, subject_id, permission_id, tenant_name) "+
				"VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING",
			subject.Type, subject.ID, id, tenantName); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) DetachPermission(ctx context.Context, subject SubjectRef, tenantName string, permissionID int64) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM subject_permissions WHERE subject_type = $1 AND subject_id = $2 AND permission_id = $3 AND tenant_name = $4",
		subject.Type, subject.ID, permissionID, tenantName)
	return err
}

func (s *Postgres) DetachAllPermissions(ctx context.Context, subject SubjectRef, tenantName string) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM subject_permissions WHERE subject_type = $1 AND subject_id = $2 AND tenant_name = $3",
		subject.Type, subject.ID, tenantName)
	return err
}

func (s *Postgres) AttachRoles(ctx context.Context, subject SubjectRef, tenantName, teamID string, roleIDs []int64) error {
	for _, id := range roleIDs {
		if _, err := s.pool.Exec(ctx,
			"INSERT INTO subject_roles (subject_type, subject_id, role_id, tenant_name, team_id) "+
				"VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING",
			subject.Type, subject.ID, id, tenantName, teamID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) DetachRole(ctx context.Context, subject SubjectRef, tenantName string, roleID int64) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM subject_roles WHERE subject_type = $1 AND subject_id = $2 AND role_id = $3 AND tenant_name = $4",
		subject.Type, subject.ID, roleID, tenantName)
	return err
}

func (s *Postgres) DetachAllRoles(ctx context.Context, subject SubjectRef, tenantName string) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM subject_roles WHERE subject_type = $1 AND subject_id = $2 AND tenant_name = $3",
		subject.Type, subject.ID, tenantName)
	return err
}

func (s *Postgres) AttachRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	for _, id := range permissionIDs {
		if _, err := s.pool.Exec(ctx,
			"INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			roleID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) DetachRolePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2",
		roleID, permissionID)
	return err
}

func (s *Postgres) DetachAllRolePermissions(ctx context.Context, roleID int64) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (Permission, error) {
	var p Permission
	if err := row.Scan(&p.ID, &p.UID, &p.Name, &p.TenantName, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Permission{}, err
	}
	return p, nil
}

func scanRole(row rowScanner) (Role, error) {
	var r Role
	if err := row.Scan(&r.ID, &r.UID, &r.Name, &r.TenantName, &r.TeamID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Role{}, err
	}
	return r, nil
}

func scanRoleNotFound(row rowScanner) (Role, error) {
	r, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return r, nil
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
	defer rows.Close()
	var out []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()
	var out []Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
