package resolver

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/entigraph/entigraph-go-core/internal/instance"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// rowsToMaps scans a result set into column → value maps. Byte slices are
// converted to strings; everything else keeps the driver's type.
func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		holders := make([]any, len(cols))
		for i := range holders {
			holders[i] = new(any)
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			v := *(holders[i].(*any))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			m[c] = v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// mapToInstance normalizes one row into an instance of the entity. Column
// names are matched to declared attributes case-insensitively, write-only
// attributes are stripped, and Object attributes stored as JSON strings are
// decoded back into structured values.
func mapToInstance(ent *schema.Entity, row map[string]any) *instance.Instance {
	byColumn := make(map[string]*schema.Attribute, len(ent.Attributes))
	for i := range ent.Attributes {
		byColumn[strings.ToLower(ent.Attributes[i].Name)] = &ent.Attributes[i]
	}
	inst := instance.New(ent.Module, ent.Name)
	for col, val := range row {
		attr, ok := byColumn[col]
		if !ok {
			// Reserved columns and relationship pointers pass through.
			inst.SetAttribute(col, val)
			continue
		}
		if attr.WriteOnly {
			continue
		}
		if attr.Type == schema.TypeObject {
			if s, isStr := val.(string); isStr {
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err == nil {
					val = decoded
				}
			}
		}
		inst.SetAttribute(attr.Name, val)
	}
	return inst
}
