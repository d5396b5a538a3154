package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/oricodes/tenantperm/pkg/store"
	"github.com/oricodes/tenantperm/pkg/uid"
)

// refKind discriminates the variants of a Ref.
type refKind uint8

const (
	refID refKind = iota + 1
	refUID
	refName
	refPermission
	refRole
)

// Ref is a classified permission or role reference. Callers hand the engine
// loosely typed references (an id, a uid string, a name, an enum-like value
// or an already resolved row); Classify normalizes them into a Ref so the
// lookup path is selected once, not re-inferred at every call site.
type Ref struct {
	kind       refKind
	id         int64
	uid        string
	name       string
	permission store.Permission
	role       store.Role
}

// Classify converts a loosely typed permission or role reference into a Ref.
//
// Integers classify as ids. Strings shaped like a UUID or ULID classify as
// uids, any other non-empty string as a name. fmt.Stringer values (enum-like
// types) classify through their string form. store.Permission and store.Role
// values pass through already resolved. Anything else, including empty
// strings, fails with ErrInvalidReferenceType.
func Classify(value any) (Ref, error) {
	switch v := value.(type) {
	case int:
		return Ref{kind: refID, id: int64(v)}, nil
	case int32:
		return Ref{kind: refID, id: int64(v)}, nil
	case int64:
		return Ref{kind: refID, id: v}, nil
	case uint:
		return Ref{kind: refID, id: int64(v)}, nil
	case uint32:
		return Ref{kind: refID, id: int64(v)}, nil
	case uint64:
		return Ref{kind: refID, id: int64(v)}, nil
	case uuid.UUID:
		return Ref{kind: refUID, uid: v.String()}, nil
	case string:
		return classifyString(v)
	case store.Permission:
		return Ref{kind: refPermission, permission: v}, nil
	case *store.Permission:
		if v == nil {
			return Ref{}, ErrInvalidReferenceType
		}
		return Ref{kind: refPermission, permission: *v}, nil
	case store.Role:
		return Ref{kind: refRole, role: v}, nil
	case *store.Role:
		if v == nil {
			return Ref{}, ErrInvalidReferenceType
		}
		return Ref{kind: refRole, role: *v}, nil
	case fmt.Stringer:
		return classifyString(v.String())
	default:
		return Ref{}, ErrInvalidReferenceType
	}
}

func classifyString(value string) (Ref, error) {
	if value == "" {
		return Ref{}, ErrInvalidReferenceType
	}
	if uid.IsUID(value) {
		return Ref{kind: refUID, uid: value}, nil
	}
	return Ref{kind: refName, name: value}, nil
}
