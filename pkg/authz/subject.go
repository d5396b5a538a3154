package authz

import (
	"strconv"

	"github.com/oricodes/tenantperm/pkg/store"
)

// Subject is any entity that can hold permissions and roles, typically a
// user. Implementations report a stable reference for the association
// tables and the tenants the subject belongs to.
type Subject interface {
	SubjectRef() store.SubjectRef
	SubjectTenants() []string
}

// persistable is an optional capability of subjects with a persistence
// lifecycle. Grants to a subject that reports Persisted() == false are
// queued and applied by CommitPendingGrants once the subject is saved.
// Subjects that do not implement it are treated as always persisted.
type persistable interface {
	Persisted() bool
}

// RoleSubject adapts a role into a Subject so permissions can be granted to
// the role itself. Mutations through a RoleSubject write the role's own
// permission set and invalidate the global permission cache, since they
// change what every holder of the role can do.
type RoleSubject struct {
	role store.Role
}

// AsSubject wraps a role for use wherever a Subject is expected.
func AsSubject(role store.Role) RoleSubject {
	return RoleSubject{role: role}
}

func (s RoleSubject) SubjectRef() store.SubjectRef {
	return store.SubjectRef{Type: store.RoleSubjectType, ID: strconv.FormatInt(s.role.ID, 10)}
}

func (s RoleSubject) SubjectTenants() []string {
	return []string{s.role.TenantName}
}

// Role returns the wrapped role.
func (s RoleSubject) Role() store.Role {
	return s.role
}

func isPersisted(subject Subject) bool {
	if p, ok := subject.(persistable); ok {
		return p.Persisted()
	}
	return true
}

// roleSubjectID extracts the role id when subject is a role, reporting false
// otherwise.
func roleSubjectID(subject Subject) (int64, bool) {
	ref := subject.SubjectRef()
	if ref.Type != store.RoleSubjectType {
		return 0, false
	}
	id, err := strconv.ParseInt(ref.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func subjectSharesTenant(subject Subject, tenantName string) bool {
	for _, name := range subject.SubjectTenants() {
		if name == tenantName {
			return true
		}
	}
	return false
}
