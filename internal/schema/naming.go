package schema

import "strings"

// ModuleSeparator joins module and entity name inside a path segment.
const ModuleSeparator = "$"

var tableSanitizer = strings.NewReplacer(FqSeparator, "_", ModuleSeparator, "_", ".", "_", "-", "_")

// ToTableReference maps an entity to its table name: lowercased
// module_entity with any separator characters sanitized.
func ToTableReference(module, entity string) string {
	return tableSanitizer.Replace(strings.ToLower(module + "_" + entity))
}

// OwnersTable names the per-entity ownership table.
func OwnersTable(tableRef string) string {
	return tableRef + "_owners"
}

// VectorTable names the per-entity vector table of the relational vector
// backend.
func VectorTable(tableRef string) string {
	return tableRef + "_vec"
}

// ToColumnReference resolves an attribute reference to a column reference
// for SQL emission. The attribute may be bare ("age"), qualified by entity
// name ("Person.age") or by fully qualified name ("acme/Person.age"); the
// qualifier is rewritten to the entity's table reference. Bare attributes
// are qualified with tableRef.
func ToColumnReference(attr, tableRef, entityName, entityFq, module string, quoted bool) string {
	table := tableRef
	column := attr
	if i := strings.LastIndex(attr, "."); i >= 0 {
		qualifier := attr[:i]
		column = attr[i+1:]
		switch qualifier {
		case entityName, entityFq, tableRef:
			table = tableRef
		default:
			if strings.Contains(qualifier, FqSeparator) {
				parts := strings.SplitN(qualifier, FqSeparator, 2)
				table = ToTableReference(parts[0], parts[1])
			} else {
				table = ToTableReference(module, qualifier)
			}
		}
	}
	if quoted {
		return `"` + table + `"."` + column + `"`
	}
	return table + "." + column
}
