package resolver

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/instance"
	"github.com/entigraph/entigraph-go-core/internal/query"
	"github.com/entigraph/entigraph-go-core/internal/schema"
	"github.com/entigraph/entigraph-go-core/internal/vector"
)

// defaultSearchLimit caps vector searches when the caller gives no limit.
const defaultSearchLimit = 5

// QueryInstances runs the instance's declarative query. Attribute names
// ending in ? are vector predicates: their values are embedded and searched
// in the vector store, and the hit set is intersected with the SQL result
// by path membership in a single read.
func (r *SQLResolver) QueryInstances(dbc *common.DbContext, inst *instance.Instance, queryAll, distinct bool) ([]*instance.Instance, error) {
	ent, err := r.entityFor(inst)
	if err != nil {
		return nil, err
	}
	q := r.querier(dbc)
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}
	// Reads are never denied outright; a caller without a global read
	// permission gets the owners-table join attached by buildSpec instead.
	spec, vecQueries, err := r.buildSpec(dbc, q, ent, inst, queryAll, distinct, schema.OpRead)
	if err != nil {
		return nil, err
	}

	if len(vecQueries) > 0 && r.vectors.IsSupported() && len(ent.FullTextAttributes()) > 0 {
		vecPaths, searched := r.vectorLookup(dbc, ent, inst, tenant, vecQueries, spec)
		if searched {
			if len(vecPaths) == 0 {
				return nil, nil
			}
			spec.PathIn = vecPaths
		}
	}

	rows, err := r.runSelect(dbc, q, ent, spec, tenant)
	if err != nil {
		return nil, err
	}
	out := make([]*instance.Instance, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapToInstance(ent, row))
	}
	return out, nil
}

// QueryChildInstances restricts the query to rows whose path lies under the
// parent path; the rest is a normal query.
func (r *SQLResolver) QueryChildInstances(dbc *common.DbContext, parentPath string, inst *instance.Instance) ([]*instance.Instance, error) {
	if parentPath == "" {
		return nil, common.NewInvalidArgument("queryChildInstances requires a parent path")
	}
	child := inst.Clone()
	child.AddQuery(schema.PathColumn, "like", parentPath+"/%")
	return r.QueryInstances(dbc, child, false, false)
}

// QueryConnectedInstances returns the instances of inst's entity connected
// to the given instance through the relationship. One-to-one projects the
// pointer column; between joins through the link table matching either
// endpoint.
func (r *SQLResolver) QueryConnectedInstances(dbc *common.DbContext, relationshipFq string, connected, inst *instance.Instance) ([]*instance.Instance, error) {
	rel, ok := r.catalog.LookupRelationship(relationshipFq)
	if !ok {
		return nil, common.NewErrNotFound("relationship " + relationshipFq)
	}
	connectedPath := connected.Path()
	if connectedPath == "" {
		return nil, common.NewInvalidArgument("connected instance requires " + schema.PathColumn)
	}
	ent, err := r.entityFor(inst)
	if err != nil {
		return nil, err
	}
	q := r.querier(dbc)
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}

	spec, _, err := r.buildSpec(dbc, q, ent, inst, false, false, schema.OpRead)
	if err != nil {
		return nil, err
	}

	table := schema.ToTableReference(ent.Module, ent.Name)
	switch rel.Kind {
	case schema.OneToOne:
		spec.WhereClauses = append(spec.WhereClauses, query.Where{
			Column: rel.PointerColumn(),
			Op:     "=",
			Value:  connectedPath,
		})
	case schema.Between:
		linkTable := schema.ToTableReference(rel.Module, rel.Name)
		from, to := rel.Aliases()
		d := r.dialect
		on := fmt.Sprintf("((%s = ? AND %s = %s) OR (%s = ? AND %s = %s))",
			query.QualifiedColumn(d, linkTable, from),
			query.QualifiedColumn(d, table, schema.PathColumn), query.QualifiedColumn(d, linkTable, to),
			query.QualifiedColumn(d, linkTable, to),
			query.QualifiedColumn(d, table, schema.PathColumn), query.QualifiedColumn(d, linkTable, from))
		spec.JoinClauses = append(spec.JoinClauses,
			query.ScopedJoin(d, linkTable, on, tenant, connectedPath, connectedPath))
	default:
		return nil, &common.UnsupportedRelationshipForJoinError{Name: rel.Fq()}
	}

	rows, err := r.runSelect(dbc, q, ent, spec, tenant)
	if err != nil {
		return nil, err
	}
	out := make([]*instance.Instance, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapToInstance(ent, row))
	}
	return out, nil
}

// QueryByJoin is the most expressive read path: joins driven by
// relationship metadata or explicit raw specs, with a required projection.
// Results come back as raw projection rows.
func (r *SQLResolver) QueryByJoin(dbc *common.DbContext, inst *instance.Instance, req QueryByJoinRequest) ([]map[string]any, error) {
	if len(req.Into) == 0 {
		return nil, &common.MissingProjectionError{}
	}
	ent, err := r.entityFor(inst)
	if err != nil {
		return nil, err
	}
	q := r.querier(dbc)
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}

	spec, _, err := r.buildSpec(dbc, q, ent, inst, false, req.Distinct, schema.OpRead)
	if err != nil {
		return nil, err
	}
	spec.Into = req.Into
	spec.WhereClauses = append(spec.WhereClauses, req.WhereClauses...)

	if len(req.JoinInfo) > 0 {
		planned, err := query.PlanJoins(r.catalog, ent, req.JoinInfo, tenant, r.dialect)
		if err != nil {
			return nil, err
		}
		spec.JoinClauses = append(spec.JoinClauses, planned...)
	}
	if len(req.RawJoins) > 0 {
		planned, err := query.PlanRawJoins(ent, req.RawJoins, tenant, r.dialect)
		if err != nil {
			return nil, err
		}
		spec.JoinClauses = append(spec.JoinClauses, planned...)
	}

	return r.runSelect(dbc, q, ent, spec, tenant)
}

// FullTextSearch embeds the query text and returns the nearest-neighbor
// paths from the vector store.
func (r *SQLResolver) FullTextSearch(dbc *common.DbContext, module, entity, queryText string, opts SearchOptions) ([]string, error) {
	ent, ok := r.catalog.LookupEntity(module + schema.FqSeparator + entity)
	if !ok {
		return nil, common.NewErrNotFound("entity " + module + schema.FqSeparator + entity)
	}
	if !r.vectors.IsSupported() {
		return nil, nil
	}
	q := r.querier(dbc)
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	embedder, err := vector.NewEmbedder(r.embed, ent)
	if err != nil {
		return nil, err
	}
	vec, err := embedder.EmbedText(dbc.Ctx, queryText)
	if err != nil {
		return nil, err
	}
	owner, err := r.ownerScope(dbc, q, ent)
	if err != nil {
		return nil, err
	}
	return r.vectors.Search(dbc.Ctx, ent, vec, tenant, limit, owner)
}

// buildSpec derives the query spec from the instance, separating vector
// predicates (attributes suffixed with ?) from SQL predicates and
// attaching the owners-table read scope when the caller lacks a global
// read permission.
func (r *SQLResolver) buildSpec(dbc *common.DbContext, q common.Querier, ent *schema.Entity, inst *instance.Instance, queryAll, distinct bool, intent schema.Operation) (*query.Spec, map[string]string, error) {
	qObj := inst.QueryAttributesAsObject()
	qVals := inst.QueryAttributeValuesAsObject()

	vecQueries := map[string]string{}
	for attr := range qObj {
		if strings.HasSuffix(attr, "?") {
			base := strings.TrimSuffix(attr, "?")
			if v, ok := qVals[attr]; ok && v != nil {
				vecQueries[base] = fmt.Sprint(v)
			}
			delete(qObj, attr)
			delete(qVals, attr)
		}
	}
	if queryAll {
		qObj, qVals = nil, nil
	}

	spec := &query.Spec{
		QueryObj:       qObj,
		QueryVals:      qVals,
		QueryOrder:     inst.QueryAttributeNames(),
		Distinct:       distinct || inst.Distinct,
		GroupBy:        inst.GroupBy,
		OrderBy:        inst.OrderBy,
		OrderDirection: inst.OrderDirection,
		Aggregates:     inst.Aggregates,
		Limit:          inst.Limit,
		Offset:         inst.Offset,
	}

	readJoin, err := r.gate.ReadScope(dbc, q, ent, intent)
	if err != nil {
		return nil, nil, err
	}
	if readJoin != nil {
		spec.JoinClauses = append(spec.JoinClauses, *readJoin)
	}
	return spec, vecQueries, nil
}

// vectorLookup embeds each vector predicate and intersects the hit sets.
// Adapter failures degrade to a SQL-only read with a warning.
func (r *SQLResolver) vectorLookup(dbc *common.DbContext, ent *schema.Entity, inst *instance.Instance, tenant string, vecQueries map[string]string, spec *query.Spec) ([]string, bool) {
	limit := inst.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	embedder, err := vector.NewEmbedder(r.embed, ent)
	if err != nil {
		r.log.Warn("embedder unavailable", zap.String("entity", ent.Fq()), zap.Error(err))
		return nil, false
	}
	owner := ownerScopeFromJoin(spec, dbc, ent)

	var merged []string
	attrs := make([]string, 0, len(vecQueries))
	for a := range vecQueries {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	for i, attr := range attrs {
		vec, err := embedder.EmbedText(dbc.Ctx, vecQueries[attr])
		if err != nil {
			r.log.Warn("query embedding failed", zap.String("attribute", attr), zap.Error(err))
			return nil, false
		}
		ids, err := r.vectors.Search(dbc.Ctx, ent, vec, tenant, limit, owner)
		if err != nil {
			r.log.Warn("vector search failed", zap.String("attribute", attr), zap.Error(err))
			return nil, false
		}
		if i == 0 {
			merged = ids
			continue
		}
		merged = intersect(merged, ids)
	}
	return merged, true
}

func (r *SQLResolver) ownerScope(dbc *common.DbContext, q common.Querier, ent *schema.Entity) (*vector.OwnerScope, error) {
	readJoin, err := r.gate.ReadScope(dbc, q, ent, schema.OpRead)
	if err != nil {
		return nil, err
	}
	if readJoin == nil {
		return nil, nil
	}
	return &vector.OwnerScope{
		OwnersTable: schema.OwnersTable(schema.ToTableReference(ent.Module, ent.Name)),
		UserID:      dbc.UserID,
	}, nil
}

// ownerScopeFromJoin mirrors an already-attached read-scope join into the
// vector search instead of re-querying the permission tables.
func ownerScopeFromJoin(spec *query.Spec, dbc *common.DbContext, ent *schema.Entity) *vector.OwnerScope {
	owners := schema.OwnersTable(schema.ToTableReference(ent.Module, ent.Name))
	for _, j := range spec.JoinClauses {
		if strings.Contains(j.Table, owners) {
			return &vector.OwnerScope{OwnersTable: owners, UserID: dbc.UserID}
		}
	}
	return nil
}

func (r *SQLResolver) runSelect(dbc *common.DbContext, q common.Querier, ent *schema.Entity, spec *query.Spec, tenant string) ([]map[string]any, error) {
	table := schema.ToTableReference(ent.Module, ent.Name)
	sqlStr, args, err := query.Compile(spec, table, tenant, r.dialect)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(dbc.Ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rowsToMaps(rows)
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
