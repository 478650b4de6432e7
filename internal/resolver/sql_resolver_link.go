package resolver

import (
	"github.com/google/uuid"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/instance"
	"github.com/entigraph/entigraph-go-core/internal/paths"
	"github.com/entigraph/entigraph-go-core/internal/query"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// HandleInstancesLink creates or removes the association between two
// existing instances. One-to-one writes the pointer column on each
// endpoint; between inserts a link row, first purging any existing one when
// OrUpdate or InDeleteMode is set. In delete mode one-to-one pointers are
// replaced with fresh random UUIDs, which breaks the reference without
// leaving a null in a non-null column.
func (r *SQLResolver) HandleInstancesLink(dbc *common.DbContext, node1, other *instance.Instance, relationshipFq string, opts LinkOptions) (*instance.Instance, error) {
	rel, ok := r.catalog.LookupRelationship(relationshipFq)
	if !ok {
		return nil, common.NewErrNotFound("relationship " + relationshipFq)
	}
	path1, path2 := node1.Path(), other.Path()
	if path1 == "" || path2 == "" {
		return nil, common.NewInvalidArgument("linking requires both instances to carry " + schema.PathColumn)
	}
	ent1, err := r.entityFor(node1)
	if err != nil {
		return nil, err
	}
	ent2, err := r.entityFor(other)
	if err != nil {
		return nil, err
	}
	q := r.querier(dbc)
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}
	if err := r.gate.Check(dbc, q, schema.OpUpdate, ent1, path1); err != nil {
		return nil, err
	}
	if err := r.gate.Check(dbc, q, schema.OpUpdate, ent2, path2); err != nil {
		return nil, err
	}

	switch rel.Kind {
	case schema.OneToOne:
		col := rel.PointerColumn()
		val1, val2 := path2, path1
		if opts.InDeleteMode {
			val1, val2 = uuid.NewString(), uuid.NewString()
		}
		if err := r.setPointer(dbc, q, ent1, path1, col, val1, tenant); err != nil {
			return nil, err
		}
		if err := r.setPointer(dbc, q, ent2, path2, col, val2, tenant); err != nil {
			return nil, err
		}
		return node1, nil

	case schema.Between:
		table := schema.ToTableReference(rel.Module, rel.Name)
		from, to := rel.Aliases()
		if opts.OrUpdate || opts.InDeleteMode {
			// Existing link rows are purged, never soft-deleted.
			sqlStr, args := query.NewDelete(r.dialect, table).
				Where("(("+from+" = ? AND "+to+" = ?) OR ("+from+" = ? AND "+to+" = ?))",
					path1, path2, path2, path1).
				Build()
			if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
				return nil, err
			}
		}
		if opts.InDeleteMode {
			return node1, nil
		}
		linkPath := paths.New(rel.Module, rel.Name, "", "")
		sqlStr, args := query.NewInsert(r.dialect, table).
			Set(schema.PathColumn, linkPath).
			Set(from, path1).
			Set(to, path2).
			Set(schema.TenantColumn, tenant).
			Set(schema.DeletedColumn, false).
			Build()
		if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
			return nil, err
		}
		link := instance.New(rel.Module, rel.Name).
			SetPath(linkPath).
			SetAttribute(from, path1).
			SetAttribute(to, path2).
			SetAttribute(schema.TenantColumn, tenant)
		return link, nil

	default:
		return nil, common.NewInvalidArgument("contains relationships are materialized by path, not linked")
	}
}

func (r *SQLResolver) setPointer(dbc *common.DbContext, q common.Querier, ent *schema.Entity, path, column, value, tenant string) error {
	sqlStr, args := query.NewUpdate(r.dialect, schema.ToTableReference(ent.Module, ent.Name)).
		Set(column, value).
		Where(schema.PathColumn+" = ?", path).
		Where(schema.TenantColumn+" = ?", tenant).
		Build()
	_, err := q.ExecContext(dbc.Ctx, sqlStr, args...)
	return err
}
