package query

import (
	"fmt"
	"strings"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// JoinInfo is the tree shape derived from relationship metadata that drives
// multi-table join planning. Each node joins one relationship's far
// endpoint onto its parent node's entity; Children continue the walk from
// the joined entity.
type JoinInfo struct {
	// Relationship is the fully qualified relationship name.
	Relationship string
	// Entity is the fully qualified name of the joined endpoint.
	Entity   string
	Children []*JoinInfo
}

// RawJoinSpec lets a caller name an explicit join: a table, its lhs column,
// an operator and an rhs of the form "Entity.column" that must reference
// the root entity of the query.
type RawJoinSpec struct {
	Table  string
	Column string
	Op     string
	Rhs    string
}

// PlanJoins walks the JoinInfo tree rooted at the query's entity and emits
// join clauses for the active dialect. Every joined table gets the
// not-deleted and tenant pair appended on its own alias.
func PlanJoins(cat *schema.Catalog, root *schema.Entity, infos []*JoinInfo, tenant string, d Dialect) ([]JoinClause, error) {
	var out []JoinClause
	rootTable := schema.ToTableReference(root.Module, root.Name)
	for _, info := range infos {
		clauses, err := planNode(cat, root.Fq(), rootTable, info, tenant, d)
		if err != nil {
			return nil, err
		}
		out = append(out, clauses...)
	}
	return out, nil
}

func planNode(cat *schema.Catalog, nearFq, nearTable string, info *JoinInfo, tenant string, d Dialect) ([]JoinClause, error) {
	rel, ok := cat.LookupRelationship(info.Relationship)
	if !ok {
		return nil, common.NewErrNotFound("relationship " + info.Relationship)
	}
	farFq := info.Entity
	if farFq == "" {
		farFq, ok = rel.OtherEndpoint(nearFq)
		if !ok {
			return nil, &common.InvalidJoinReferenceError{Text: info.Relationship + " does not connect " + nearFq}
		}
	}
	farEnt, ok := cat.LookupEntity(farFq)
	if !ok {
		return nil, common.NewErrNotFound("entity " + farFq)
	}
	farTable := schema.ToTableReference(farEnt.Module, farEnt.Name)

	var out []JoinClause
	switch rel.Kind {
	case schema.Contains:
		var on string
		if rel.From == nearFq {
			// near side is the parent: child rows point back via __parent__.
			on = fmt.Sprintf("%s = %s",
				qcol(d, farTable, schema.ParentColumn), qcol(d, nearTable, schema.PathColumn))
		} else {
			on = fmt.Sprintf("%s = %s",
				qcol(d, farTable, schema.PathColumn), qcol(d, nearTable, schema.ParentColumn))
		}
		out = append(out, scopedJoin(d, farTable, on, tenant))

	case schema.OneToOne:
		on := fmt.Sprintf("%s = %s",
			qcol(d, farTable, rel.PointerColumn()), qcol(d, nearTable, schema.PathColumn))
		out = append(out, scopedJoin(d, farTable, on, tenant))

	case schema.Between:
		linkTable := schema.ToTableReference(rel.Module, rel.Name)
		from, to := rel.Aliases()
		linkOn := fmt.Sprintf("(%s = %s OR %s = %s)",
			qcol(d, linkTable, from), qcol(d, nearTable, schema.PathColumn),
			qcol(d, linkTable, to), qcol(d, nearTable, schema.PathColumn))
		out = append(out, scopedJoin(d, linkTable, linkOn, tenant))

		// The caller may supply either endpoint, so the far join matches
		// the first form and its inverse.
		farOn := fmt.Sprintf("((%s = %s AND %s = %s) OR (%s = %s AND %s = %s))",
			qcol(d, farTable, schema.PathColumn), qcol(d, linkTable, to),
			qcol(d, linkTable, from), qcol(d, nearTable, schema.PathColumn),
			qcol(d, farTable, schema.PathColumn), qcol(d, linkTable, from),
			qcol(d, linkTable, to), qcol(d, nearTable, schema.PathColumn))
		out = append(out, scopedJoin(d, farTable, farOn, tenant))

	default:
		return nil, &common.UnsupportedRelationshipForJoinError{Name: rel.Fq()}
	}

	for _, child := range info.Children {
		clauses, err := planNode(cat, farFq, farTable, child, tenant, d)
		if err != nil {
			return nil, err
		}
		out = append(out, clauses...)
	}
	return out, nil
}

// PlanRawJoins validates and renders explicit join specs. The rhs must
// reference the root entity by name or fully qualified name.
func PlanRawJoins(root *schema.Entity, specs []RawJoinSpec, tenant string, d Dialect) ([]JoinClause, error) {
	rootTable := schema.ToTableReference(root.Module, root.Name)
	var out []JoinClause
	for _, s := range specs {
		i := strings.LastIndex(s.Rhs, ".")
		if i < 0 {
			return nil, &common.InvalidJoinReferenceError{Text: s.Rhs}
		}
		qualifier, column := s.Rhs[:i], s.Rhs[i+1:]
		if qualifier != root.Name && qualifier != root.Fq() && qualifier != rootTable {
			return nil, &common.InvalidJoinReferenceError{Text: s.Rhs}
		}
		op := s.Op
		if op == "" {
			op = "="
		}
		on := fmt.Sprintf("%s %s %s",
			qcol(d, s.Table, s.Column), op, qcol(d, rootTable, strings.ToLower(column)))
		out = append(out, scopedJoin(d, s.Table, on, tenant))
	}
	return out, nil
}

// scopedJoin appends the soft-delete mask and tenant scope to the ON
// condition of a joined table.
func scopedJoin(d Dialect, table, on, tenant string) JoinClause {
	on = fmt.Sprintf("%s AND %s = ? AND %s = ?",
		on, qcol(d, table, schema.DeletedColumn), qcol(d, table, schema.TenantColumn))
	return JoinClause{
		Table: d.QuoteIdent(table),
		On:    on,
		Args:  []any{false, tenant},
	}
}

func qcol(d Dialect, table, column string) string {
	return d.QuoteIdent(table) + "." + d.QuoteIdent(column)
}

// QualifiedColumn quotes table.column for the dialect.
func QualifiedColumn(d Dialect, table, column string) string {
	return qcol(d, table, column)
}

// ScopedJoin builds a join clause with the soft-delete mask and tenant
// scope appended, for callers assembling ON conditions directly.
func ScopedJoin(d Dialect, table, on, tenant string, args ...any) JoinClause {
	j := scopedJoin(d, table, on, tenant)
	j.Args = append(append([]any(nil), args...), j.Args...)
	return j
}
