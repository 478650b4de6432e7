// Package instance holds the per-request, in-memory representation of an
// entity instance: its attributes, query predicates, aggregates and result
// shaping options. Instances are transient and never persisted themselves;
// they are the currency between callers, the auth gate and the query
// builder. The resolver treats them as immutable and derives new values
// through MergeAttributes.
package instance

import (
	"encoding/json"
	"fmt"

	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// Instance carries one entity value or query. Attribute order is
// preserved, matching declaration/insertion order, so emitted SQL is
// deterministic.
type Instance struct {
	Module string
	Name   string

	attrNames []string
	attrs     map[string]any

	queryNames []string
	queryOps   map[string]string
	queryVals  map[string]any

	// Aggregates maps a result alias to an aggregate expression such as
	// "count(*)" or "avg(age)".
	Aggregates map[string]string
	GroupBy    []string
	OrderBy    []string
	// OrderDirection is "ASC" or "DESC"; empty means ASC.
	OrderDirection string
	Distinct       bool
	Limit          int
	Offset         int
}

// New builds an empty instance of the named entity.
func New(module, name string) *Instance {
	return &Instance{
		Module:    module,
		Name:      name,
		attrs:     map[string]any{},
		queryOps:  map[string]string{},
		queryVals: map[string]any{},
	}
}

// GetFqName returns Module/Name.
func (in *Instance) GetFqName() string {
	return in.Module + schema.FqSeparator + in.Name
}

// SetAttribute records an attribute value, preserving first-set order.
func (in *Instance) SetAttribute(name string, value any) *Instance {
	if _, ok := in.attrs[name]; !ok {
		in.attrNames = append(in.attrNames, name)
	}
	in.attrs[name] = value
	return in
}

// Attribute returns a single attribute value.
func (in *Instance) Attribute(name string) (any, bool) {
	v, ok := in.attrs[name]
	return v, ok
}

// AttributeNames returns the attribute names in insertion order.
func (in *Instance) AttributeNames() []string {
	return append([]string(nil), in.attrNames...)
}

// Attributes returns a copy of the attribute map.
func (in *Instance) Attributes() map[string]any {
	out := make(map[string]any, len(in.attrs))
	for k, v := range in.attrs {
		out[k] = v
	}
	return out
}

// Path returns the reserved path attribute, if set.
func (in *Instance) Path() string {
	p, _ := in.attrs[schema.PathColumn].(string)
	return p
}

// SetPath records the reserved path attribute.
func (in *Instance) SetPath(p string) *Instance {
	return in.SetAttribute(schema.PathColumn, p)
}

// AddQuery records one where-clause predicate: attribute, operator, value.
func (in *Instance) AddQuery(attr, op string, val any) *Instance {
	if _, ok := in.queryOps[attr]; !ok {
		in.queryNames = append(in.queryNames, attr)
	}
	in.queryOps[attr] = op
	in.queryVals[attr] = val
	return in
}

// QueryAttributeNames returns the queried attribute names in insertion
// order.
func (in *Instance) QueryAttributeNames() []string {
	return append([]string(nil), in.queryNames...)
}

// QueryAttributesAsObject returns the attribute → operator map.
func (in *Instance) QueryAttributesAsObject() map[string]string {
	out := make(map[string]string, len(in.queryOps))
	for k, v := range in.queryOps {
		out[k] = v
	}
	return out
}

// QueryAttributeValuesAsObject returns the attribute → value map.
func (in *Instance) QueryAttributeValuesAsObject() map[string]any {
	out := make(map[string]any, len(in.queryVals))
	for k, v := range in.queryVals {
		out[k] = v
	}
	return out
}

// AttributesWithStringifiedObjects returns the attributes with nested
// structured values (maps, slices) JSON-encoded, the form rows take in SQL
// storage.
func (in *Instance) AttributesWithStringifiedObjects() (map[string]any, error) {
	out := make(map[string]any, len(in.attrs))
	for k, v := range in.attrs {
		switch v.(type) {
		case map[string]any, []any, []string, []int, []float64:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("stringifying attribute %s: %w", k, err)
			}
			out[k] = string(raw)
		default:
			out[k] = v
		}
	}
	return out, nil
}

// Clone returns a deep copy.
func (in *Instance) Clone() *Instance {
	out := New(in.Module, in.Name)
	for _, n := range in.attrNames {
		out.SetAttribute(n, deepCopyValue(in.attrs[n]))
	}
	for _, n := range in.queryNames {
		out.AddQuery(n, in.queryOps[n], deepCopyValue(in.queryVals[n]))
	}
	if in.Aggregates != nil {
		out.Aggregates = make(map[string]string, len(in.Aggregates))
		for k, v := range in.Aggregates {
			out.Aggregates[k] = v
		}
	}
	out.GroupBy = append([]string(nil), in.GroupBy...)
	out.OrderBy = append([]string(nil), in.OrderBy...)
	out.OrderDirection = in.OrderDirection
	out.Distinct = in.Distinct
	out.Limit = in.Limit
	out.Offset = in.Offset
	return out
}

// MergeAttributes returns a new instance with newAttrs overlaid on the
// receiver's attributes. The receiver is unchanged.
func (in *Instance) MergeAttributes(newAttrs map[string]any) *Instance {
	out := in.Clone()
	for k, v := range newAttrs {
		out.SetAttribute(k, v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
