package schema

import (
	"fmt"
	"strings"
)

// sqlType maps a declared attribute type to the backend column type.
func sqlType(t AttrType, backend string) string {
	switch t {
	case TypeInt:
		return "bigint"
	case TypeFloat:
		return "double precision"
	case TypeBool:
		return "boolean"
	case TypeDateTime:
		if backend == "mysql" {
			return "datetime"
		}
		return "timestamp"
	case TypeUUID:
		if backend == "postgres" {
			return "uuid"
		}
		return "varchar(36)"
	default:
		// String, Object and enums are stored as text; structured values
		// are JSON-encoded strings.
		return "text"
	}
}

// CreateTableDDL emits the CREATE TABLE statement for an entity, including
// the reserved columns. The __parent__ column is present only on contained
// entities.
func CreateTableDDL(e *Entity, backend string) string {
	table := ToTableReference(e.Module, e.Name)
	var cols []string
	cols = append(cols, fmt.Sprintf("%s varchar(1024) PRIMARY KEY", PathColumn))
	for _, a := range e.Attributes {
		col := fmt.Sprintf("%s %s", strings.ToLower(a.Name), sqlType(a.Type, backend))
		if !a.Nullable && !a.WriteOnly {
			col += " NOT NULL"
		}
		if a.Unique {
			col += " UNIQUE"
		}
		cols = append(cols, col)
	}
	cols = append(cols, fmt.Sprintf("%s varchar(128) NOT NULL", TenantColumn))
	cols = append(cols, fmt.Sprintf("%s boolean NOT NULL DEFAULT false", DeletedColumn))
	if e.HasParent() {
		cols = append(cols, fmt.Sprintf("%s varchar(1024)", ParentColumn))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", table, strings.Join(cols, ",\n  "))
}

// OwnersTableDDL emits the per-entity ownership table.
func OwnersTableDDL(e *Entity, backend string) string {
	table := OwnersTable(ToTableReference(e.Module, e.Name))
	idType := "varchar(36)"
	if backend == "postgres" {
		idType = "uuid"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id %s PRIMARY KEY,
  path varchar(1024) NOT NULL,
  user_id varchar(256) NOT NULL,
  type char(1) NOT NULL,
  c boolean NOT NULL DEFAULT false,
  r boolean NOT NULL DEFAULT false,
  u boolean NOT NULL DEFAULT false,
  d boolean NOT NULL DEFAULT false,
  %s varchar(128) NOT NULL
)`, table, idType, TenantColumn)
}

// VectorTableDDL emits the relational vector table for an FTS-enabled
// entity. The vector column type is backend specific; dims is the embedding
// dimensionality.
func VectorTableDDL(e *Entity, backend string, dims int) string {
	table := VectorTable(ToTableReference(e.Module, e.Name))
	embType := "text"
	if backend == "postgres" {
		embType = fmt.Sprintf("vector(%d)", dims)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id varchar(1024) PRIMARY KEY,
  embedding %s,
  %s varchar(128) NOT NULL,
  %s boolean NOT NULL DEFAULT false
)`, table, embType, TenantColumn, DeletedColumn)
}

// BetweenTableDDL emits the link table for a between relationship: an
// identifier, the two endpoint path columns named by the aliases, and the
// reserved columns. Link rows are purged, never soft-deleted, but the flag
// is kept for uniform query emission.
func BetweenTableDDL(r *Relationship, backend string) string {
	table := ToTableReference(r.Module, r.Name)
	from, to := r.Aliases()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  %s varchar(1024) PRIMARY KEY,
  %s varchar(1024) NOT NULL,
  %s varchar(1024) NOT NULL,
  %s varchar(128) NOT NULL,
  %s boolean NOT NULL DEFAULT false
)`, table, PathColumn, from, to, TenantColumn, DeletedColumn)
}
