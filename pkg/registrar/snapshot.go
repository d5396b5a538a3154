package registrar

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/oricodes/tenantperm/pkg/store"
)

// permissionColumns lists the snapshot-able attributes of a permission row,
// in the order aliases are assigned.
var permissionColumns = []string{"id", "uid", "name", "tenant_name", "created_at", "updated_at"}

// aliasAlphabet provides the short keys used in place of column names to
// shrink the cache payload.
const aliasAlphabet = "abcdefgh"

// snapshot is the wire form of the cached permission universe. Alias maps
// short keys back to column names; an entry without it predates the aliased
// format and must be rejected so the cache is rebuilt.
type snapshot struct {
	Alias       map[string]string `json:"alias"`
	Permissions []map[string]any  `json:"permissions"`
}

func marshalSnapshot(perms []store.Permission, except []string) ([]byte, error) {
	skip := make(map[string]struct{}, len(except))
	for _, col := range except {
		skip[col] = struct{}{}
	}

	alias := make(map[string]string)
	columnAlias := make(map[string]string)
	i := 0
	for _, col := range permissionColumns {
		if _, ok := skip[col]; ok {
			continue
		}
		short := string(aliasAlphabet[i])
		alias[short] = col
		columnAlias[col] = short
		i++
	}

	rows := make([]map[string]any, 0, len(perms))
	for _, p := range perms {
		row := make(map[string]any, len(columnAlias))
		for col, short := range columnAlias {
			row[short] = columnValue(p, col)
		}
		rows = append(rows, row)
	}

	return json.Marshal(snapshot{Alias: alias, Permissions: rows})
}

func unmarshalSnapshot(data []byte) ([]store.Permission, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var snap snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, ErrInvalidSnapshot
	}
	if len(snap.Alias) == 0 {
		// Pre-alias cache entry: invalid, force a rebuild.
		return nil, ErrInvalidSnapshot
	}

	perms := make([]store.Permission, 0, len(snap.Permissions))
	for _, row := range snap.Permissions {
		var p store.Permission
		for short, value := range row {
			col, ok := snap.Alias[short]
			if !ok {
				return nil, ErrInvalidSnapshot
			}
			if err := setColumnValue(&p, col, value); err != nil {
				return nil, err
			}
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func columnValue(p store.Permission, col string) any {
	switch col {
	case "id":
		return p.ID
	case "uid":
		return p.UID.String()
	case "name":
		return p.Name
	case "tenant_name":
		return p.TenantName
	case "created_at":
		return p.CreatedAt.UTC().Format(time.RFC3339Nano)
	case "updated_at":
		return p.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return nil
}

func setColumnValue(p *store.Permission, col string, value any) error {
	switch col {
	case "id":
		n, ok := value.(json.Number)
		if !ok {
			return ErrInvalidSnapshot
		}
		id, err := n.Int64()
		if err != nil {
			return ErrInvalidSnapshot
		}
		p.ID = id
	case "uid":
		s, ok := value.(string)
		if !ok {
			return ErrInvalidSnapshot
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return ErrInvalidSnapshot
		}
		p.UID = u
	case "name":
		s, ok := value.(string)
		if !ok {
			return ErrInvalidSnapshot
		}
		p.Name = s
	case "tenant_name":
		s, ok := value.(string)
		if !ok {
			return ErrInvalidSnapshot
		}
		p.TenantName = s
	case "created_at", "updated_at":
		s, ok := value.(string)
		if !ok {
			return ErrInvalidSnapshot
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return ErrInvalidSnapshot
		}
		if col == "created_at" {
			p.CreatedAt = ts
		} else {
			p.UpdatedAt = ts
		}
	}
	return nil
}
