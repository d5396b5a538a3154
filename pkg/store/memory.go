package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store implementation. It is safe for concurrent
// use and intended for tests and single-process deployments; all uniqueness
// and cleanup invariants of the Postgres implementation hold here too.
type Memory struct {
	mu sync.Mutex

	nextPermissionID int64
	nextRoleID       int64

	permissions map[int64]Permission
	roles       map[int64]Role

	subjectPermissions map[pivotKey]map[int64]struct{}
	subjectRoles       map[pivotKey]map[int64]string // role id -> pivot team id
	rolePermissions    map[int64]map[int64]struct{}
}

type pivotKey struct {
	subjectType string
	subjectID   string
	tenantName  string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		permissions:        make(map[int64]Permission),
		roles:              make(map[int64]Role),
		subjectPermissions: make(map[pivotKey]map[int64]struct{}),
		subjectRoles:       make(map[pivotKey]map[int64]string),
		rolePermissions:    make(map[int64]map[int64]struct{}),
	}
}

func (m *Memory) ListPermissions(ctx context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	sortByID(out, func(p Permission) int64 { return p.ID })
	return out, nil
}

func (m *Memory) CreatePermission(ctx context.Context, name, tenantName string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.findPermission(name, tenantName); ok {
		return Permission{}, ErrPermissionAlreadyExists
	}
	return m.insertPermission(name, tenantName), nil
}

func (m *Memory) FindOrCreatePermission(ctx context.Context, name, tenantName string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.findPermission(name, tenantName); ok {
		return p, nil
	}
	return m.insertPermission(name, tenantName), nil
}

func (m *Memory) DeletePermission(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.permissions, id)
	for _, set := range m.subjectPermissions {
		delete(set, id)
	}
	for _, set := range m.rolePermissions {
		delete(set, id)
	}
	return nil
}

func (m *Memory) ListRoles(ctx context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sortByID(out, func(r Role) int64 { return r.ID })
	return out, nil
}

func (m *Memory) FindRoleByID(ctx context.Context, id int64, tenantName string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.roles[id]; ok && r.TenantName == tenantName {
		return r, nil
	}
	return Role{}, ErrRoleNotFound
}

func (m *Memory) FindRoleByUID(ctx context.Context, uid string, tenantName string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.roles {
		if r.UID.String() == uid && r.TenantName == tenantName {
			return r, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (m *Memory) FindRoleByName(ctx context.Context, name, tenantName, teamID string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.findRole(name, tenantName, teamID); ok {
		return r, nil
	}
	return Role{}, ErrRoleNotFound
}

func (m *Memory) CreateRole(ctx context.Context, name, tenantName, teamID string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.findRole(name, tenantName, teamID); ok {
		return Role{}, ErrRoleAlreadyExists
	}
	return m.insertRole(name, tenantName, teamID), nil
}

func (m *Memory) FindOrCreateRole(ctx context.Context, name, tenantName, teamID string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.findRole(name, tenantName, teamID); ok {
		return r, nil
	}
	return m.insertRole(name, tenantName, teamID), nil
}

func (m *Memory) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.roles, id)
	delete(m.rolePermissions, id)
	for _, set := range m.subjectRoles {
		delete(set, id)
	}
	return nil
}

func (m *Memory) ListDirectPermissions(ctx context.Context, subject SubjectRef, tenantName string) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.subjectPermissions[pivotKeyFor(subject, tenantName)]
	out := make([]Permission, 0, len(set))
	for id := range set {
		if p, ok := m.permissions[id]; ok {
			out = append(out, p)
		}
	}
	sortByID(out, func(p Permission) int64 { return p.ID })
	return out, nil
}

func (m *Memory) ListSubjectRoles(ctx context.Context, subject SubjectRef, tenantName, teamID string) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.subjectRoles[pivotKeyFor(subject, tenantName)]
	out := make([]Role, 0, len(set))
	for id, pivotTeam := range set {
		if teamID != "" && pivotTeam != "" && pivotTeam != teamID {
			continue
		}
		if r, ok := m.roles[id]; ok {
			out = append(out, r)
		}
	}
	sortByID(out, func(r Role) int64 { return r.ID })
	return out, nil
}

func (m *Memory) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.rolePermissions[roleID]
	out := make([]Permission, 0, len(set))
	for id := range set {
		if p, ok := m.permissions[id]; ok {
			out = append(out, p)
		}
	}
	sortByID(out, func(p Permission) int64 { return p.ID })
	return out, nil
}

func (m *Memory) AttachPermissions(ctx context.Context, subject SubjectRef, tenantName string, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pivotKeyFor(subject, tenantName)
	set, ok := m.subjectPermissions[key]
	if !ok {
		set = make(map[int64]struct{})
		m.subjectPermissions[key] = set
	}
	for _, id := range permissionIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (m *Memory) DetachPermission(ctx context.Context, subject SubjectRef, tenantName string, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subjectPermissions[pivotKeyFor(subject, tenantName)], permissionID)
	return nil
}

func (m *Memory) DetachAllPermissions(ctx context.Context, subject SubjectRef, tenantName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subjectPermissions, pivotKeyFor(subject, tenantName))
	return nil
}

func (m *Memory) AttachRoles(ctx context.Context, subject SubjectRef, tenantName, teamID string, roleIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pivotKeyFor(subject, tenantName)
	set, ok := m.subjectRoles[key]
	if !ok {
		set = make(map[int64]string)
		m.subjectRoles[key] = set
	}
	for _, id := range roleIDs {
		set[id] = teamID
	}
	return nil
}

func (m *Memory) DetachRole(ctx context.Context, subject SubjectRef, tenantName string, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subjectRoles[pivotKeyFor(subject, tenantName)], roleID)
	return nil
}

func (m *Memory) DetachAllRoles(ctx context.Context, subject SubjectRef, tenantName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subjectRoles, pivotKeyFor(subject, tenantName))
	return nil
}

func (m *Memory) AttachRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.rolePermissions[roleID]
	if !ok {
		set = make(map[int64]struct{})
		m.rolePermissions[roleID] = set
	}
	for _, id := range permissionIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (m *Memory) DetachRolePermission(ctx context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rolePermissions[roleID], permissionID)
	return nil
}

func (m *Memory) DetachAllRolePermissions(ctx context.Context, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rolePermissions, roleID)
	return nil
}

// Callers must hold m.mu.

func (m *Memory) findPermission(name, tenantName string) (Permission, bool) {
	for _, p := range m.permissions {
		if p.Name == name && p.TenantName == tenantName {
			return p, true
		}
	}
	return Permission{}, false
}

func (m *Memory) insertPermission(name, tenantName string) Permission {
	m.nextPermissionID++
	now := time.Now().UTC()
	p := Permission{
		ID:         m.nextPermissionID,
		UID:        uuid.New(),
		Name:       name,
		TenantName: tenantName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.permissions[p.ID] = p
	return p
}

func (m *Memory) findRole(name, tenantName, teamID string) (Role, bool) {
	for _, r := range m.roles {
		if r.Name == name && r.TenantName == tenantName && r.TeamID == teamID {
			return r, true
		}
	}
	return Role{}, false
}

func (m *Memory) insertRole(name, tenantName, teamID string) Role {
	m.nextRoleID++
	now := time.Now().UTC()
	r := Role{
		ID:         m.nextRoleID,
		UID:        uuid.New(),
		Name:       name,
		TenantName: tenantName,
		TeamID:     teamID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.roles[r.ID] = r
	return r
}

func pivotKeyFor(subject SubjectRef, tenantName string) pivotKey {
	return pivotKey{subjectType: subject.Type, subjectID: subject.ID, tenantName: tenantName}
}

func sortByID[T any](items []T, id func(T) int64) {
	slices.SortFunc(items, func(a, b T) int {
		switch {
		case id(a) < id(b):
			return -1
		case id(a) > id(b):
			return 1
		default:
			return 0
		}
	})
}
