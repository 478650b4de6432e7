package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/entigraph/entigraph-go-core/internal/auth"
	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/instance"
	"github.com/entigraph/entigraph-go-core/internal/paths"
	"github.com/entigraph/entigraph-go-core/internal/query"
	"github.com/entigraph/entigraph-go-core/internal/schema"
	"github.com/entigraph/entigraph-go-core/internal/txn"
	"github.com/entigraph/entigraph-go-core/internal/vector"
)

// kernelTenant is the tenant recorded for rows written in kernel mode when
// no tenant has been seeded on the context.
const kernelTenant = "kernel"

// SQLResolver is the concrete SQL-backed resolver. One resolver is expected
// per request or per worker; the only cross-resolver shared state is the
// connection pool, the catalog and the transaction manager.
type SQLResolver struct {
	db      *sql.DB
	dialect query.Dialect
	catalog *schema.Catalog
	gate    *auth.Gate
	vectors vector.Adapter
	embed   common.EmbeddingConfig
	txns    *txn.Manager
	log     *zap.Logger

	mu        sync.Mutex
	activeTxn string
}

// NewSQLResolver wires the resolver from its collaborators.
func NewSQLResolver(db *sql.DB, dialect query.Dialect, catalog *schema.Catalog, gate *auth.Gate, vectors vector.Adapter, embed common.EmbeddingConfig, txns *txn.Manager, log *zap.Logger) *SQLResolver {
	if vectors == nil {
		vectors = vector.NopAdapter{}
	}
	return &SQLResolver{
		db:      db,
		dialect: dialect,
		catalog: catalog,
		gate:    gate,
		vectors: vectors,
		embed:   embed,
		txns:    txns,
		log:     log,
	}
}

func (r *SQLResolver) Capabilities() []Capability {
	return []Capability{
		CapCreate, CapUpsert, CapUpdate, CapQuery, CapQueryChildren,
		CapQueryConnected, CapQueryByJoin, CapDelete, CapLink, CapFtSearch,
		CapStartTxn, CapCommitTxn, CapRollbackTxn,
	}
}

// querier returns the session all SQL of this call must use: the active
// transaction's session when one is set, else the pooled default.
func (r *SQLResolver) querier(dbc *common.DbContext) common.Querier {
	id := dbc.TxnID
	if id == "" {
		r.mu.Lock()
		id = r.activeTxn
		r.mu.Unlock()
	}
	if id != "" {
		if tx, ok := r.txns.Session(id); ok {
			return tx
		}
	}
	return r.db
}

func (r *SQLResolver) tenant(dbc *common.DbContext, q common.Querier) (string, error) {
	if dbc.KernelMode {
		return dbc.TenantID(func(context.Context, string) (string, error) {
			return kernelTenant, nil
		})
	}
	return dbc.TenantID(r.gate.TenantOf(q))
}

func (r *SQLResolver) entityFor(inst *instance.Instance) (*schema.Entity, error) {
	ent, ok := r.catalog.LookupEntity(inst.GetFqName())
	if !ok {
		return nil, common.NewErrNotFound("entity " + inst.GetFqName())
	}
	return ent, nil
}

// CreateInstance persists a new row. Write ordering: permission check,
// path allocation, one-to-one placeholder columns, row insert, owner row,
// best-effort embedding.
func (r *SQLResolver) CreateInstance(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error) {
	if r.catalog.IsBetween(inst.GetFqName()) {
		return r.createBetween(dbc, inst, false)
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

	parentPath, _ := inst.Attribute(schema.ParentColumn)
	pp, _ := parentPath.(string)
	if err := r.gate.Check(dbc, q, schema.OpCreate, ent, pp); err != nil {
		return nil, err
	}

	path := r.allocatePath(ent, inst, pp)
	out := inst.Clone().SetPath(path).SetAttribute(schema.TenantColumn, tenant)

	for _, rel := range r.catalog.OneToOneRelationshipsFor(ent.Fq()) {
		col := rel.PointerColumn()
		if _, ok := out.Attribute(col); !ok {
			// Placeholder so the pointer column is non-null before the
			// counterpart is linked.
			out.SetAttribute(col, uuid.NewString())
		}
	}

	if err := r.insertRow(dbc, q, ent, out, pp, false); err != nil {
		return nil, err
	}

	if !dbc.KernelMode {
		if err := r.gate.CreateOwnerRow(dbc, q, ent, path, tenant); err != nil {
			return nil, err
		}
	}

	r.indexInstance(dbc, ent, path, out, tenant)
	return out, nil
}

// UpsertInstance inserts or replaces by path using the backend's upsert.
// No owner rows are created; this is the idempotent path used for
// schema-seeded rows.
func (r *SQLResolver) UpsertInstance(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error) {
	if r.catalog.IsBetween(inst.GetFqName()) {
		return r.createBetween(dbc, inst, true)
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

	parentPath, _ := inst.Attribute(schema.ParentColumn)
	pp, _ := parentPath.(string)
	if err := r.gate.Check(dbc, q, schema.OpCreate, ent, pp); err != nil {
		return nil, err
	}

	path := inst.Path()
	if path == "" {
		path = r.allocatePath(ent, inst, pp)
	}
	out := inst.Clone().SetPath(path).SetAttribute(schema.TenantColumn, tenant)

	if err := r.insertRow(dbc, q, ent, out, pp, true); err != nil {
		return nil, err
	}

	r.indexInstance(dbc, ent, path, out, tenant)
	return out, nil
}

// UpdateInstance applies newAttrs to the row identified by the instance's
// path and returns a fresh instance with the merged attributes.
func (r *SQLResolver) UpdateInstance(dbc *common.DbContext, inst *instance.Instance, newAttrs map[string]any) (*instance.Instance, error) {
	ent, err := r.entityFor(inst)
	if err != nil {
		return nil, err
	}
	path := inst.Path()
	if path == "" {
		return nil, common.NewInvalidArgument("update requires " + schema.PathColumn)
	}
	q := r.querier(dbc)
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}
	if err := r.gate.Check(dbc, q, schema.OpUpdate, ent, path); err != nil {
		return nil, err
	}

	merged := inst.MergeAttributes(newAttrs)
	stringified, err := merged.AttributesWithStringifiedObjects()
	if err != nil {
		return nil, err
	}

	b := query.NewUpdate(r.dialect, schema.ToTableReference(ent.Module, ent.Name))
	names := make([]string, 0, len(newAttrs))
	for name := range newAttrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.Set(strings.ToLower(name), stringified[name])
	}
	b.Where(schema.PathColumn+" = ?", path)
	b.Where(schema.TenantColumn+" = ?", tenant)
	b.Where(schema.DeletedColumn+" = ?", false)
	sqlStr, args := b.Build()
	if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
		return nil, err
	}

	if touchesFullText(ent, newAttrs) {
		r.indexInstance(dbc, ent, path, merged, tenant)
	}
	return merged, nil
}

// DeleteInstance removes the row identified by the target's path. With
// purge the row, its owner rows and its vector entry are gone for good;
// otherwise the row is soft-deleted and only the vector entry removed.
// Between-link rows are always purged.
func (r *SQLResolver) DeleteInstance(dbc *common.DbContext, target *instance.Instance, purge bool) (*instance.Instance, error) {
	path := target.Path()
	if path == "" {
		return nil, common.NewInvalidArgument("delete requires " + schema.PathColumn)
	}
	q := r.querier(dbc)

	if r.catalog.IsBetween(target.GetFqName()) {
		rel, _ := r.catalog.LookupRelationship(target.GetFqName())
		tenant, err := r.tenant(dbc, q)
		if err != nil {
			return nil, err
		}
		if err := r.checkLinkRow(dbc, q, rel, path, tenant); err != nil {
			return nil, err
		}
		table := schema.ToTableReference(rel.Module, rel.Name)
		sqlStr, args := query.NewDelete(r.dialect, table).
			Where(schema.PathColumn+" = ?", path).
			Where(schema.TenantColumn+" = ?", tenant).
			Build()
		if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
			return nil, err
		}
		return target, nil
	}

	ent, err := r.entityFor(target)
	if err != nil {
		return nil, err
	}
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}
	if err := r.gate.Check(dbc, q, schema.OpDelete, ent, path); err != nil {
		return nil, err
	}

	// The vector entry goes first so a purged row never leaves a dangling
	// vector behind.
	if r.vectors.IsSupported() && len(ent.FullTextAttributes()) > 0 {
		if err := r.vectors.Delete(dbc.Ctx, ent, path); err != nil {
			r.log.Warn("vector delete failed", zap.String("path", path), zap.Error(err))
		}
	}

	table := schema.ToTableReference(ent.Module, ent.Name)
	if purge {
		sqlStr, args := query.NewDelete(r.dialect, table).
			Where(schema.PathColumn+" = ?", path).
			Where(schema.TenantColumn+" = ?", tenant).
			Build()
		if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
			return nil, err
		}
		if err := r.gate.DeleteOwnerRows(dbc, q, ent, path); err != nil {
			return nil, err
		}
		return target, nil
	}

	sqlStr, args := query.NewUpdate(r.dialect, table).
		Set(schema.DeletedColumn, true).
		Where(schema.PathColumn+" = ?", path).
		Where(schema.TenantColumn+" = ?", tenant).
		Build()
	if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
		return nil, err
	}
	return target, nil
}

// allocatePath takes the declared identifier value when present, else a
// random UUID, and extends the parent path for contained children.
func (r *SQLResolver) allocatePath(ent *schema.Entity, inst *instance.Instance, parentPath string) string {
	id := ""
	if idAttr := ent.IDAttribute(); idAttr != nil {
		if v, ok := inst.Attribute(idAttr.Name); ok && v != nil {
			id = fmt.Sprint(v)
		}
	}
	return paths.New(ent.Module, ent.Name, id, parentPath)
}

// insertRow writes one entity row including the reserved columns.
func (r *SQLResolver) insertRow(dbc *common.DbContext, q common.Querier, ent *schema.Entity, inst *instance.Instance, parentPath string, upsert bool) error {
	stringified, err := inst.AttributesWithStringifiedObjects()
	if err != nil {
		return err
	}
	b := query.NewInsert(r.dialect, schema.ToTableReference(ent.Module, ent.Name))
	b.Set(schema.PathColumn, inst.Path())
	for _, name := range inst.AttributeNames() {
		switch name {
		case schema.PathColumn, schema.TenantColumn, schema.DeletedColumn, schema.ParentColumn:
			continue
		}
		b.Set(strings.ToLower(name), stringified[name])
	}
	tenant, _ := inst.Attribute(schema.TenantColumn)
	b.Set(schema.TenantColumn, tenant)
	b.Set(schema.DeletedColumn, false)
	if ent.HasParent() {
		var pp any
		if parentPath != "" {
			pp = parentPath
		}
		b.Set(schema.ParentColumn, pp)
	}
	if upsert {
		b.Upsert(schema.PathColumn)
	}
	sqlStr, args := b.Build()
	_, err = q.ExecContext(dbc.Ctx, sqlStr, args...)
	return err
}

// createBetween resolves both endpoint paths from the instance's endpoint
// attributes and inserts one link row. The write is gated on the caller's
// create permission for both connected entities. With replace set, any
// existing row for the pair is purged first so re-running a seed cannot
// duplicate links.
func (r *SQLResolver) createBetween(dbc *common.DbContext, inst *instance.Instance, replace bool) (*instance.Instance, error) {
	rel, ok := r.catalog.LookupRelationship(inst.GetFqName())
	if !ok {
		return nil, common.NewErrNotFound("relationship " + inst.GetFqName())
	}
	from, to := rel.Aliases()
	fromVal, ok1 := inst.Attribute(from)
	toVal, ok2 := inst.Attribute(to)
	if !ok1 || !ok2 {
		return nil, common.NewInvalidArgument("between instance requires endpoint attributes " + from + " and " + to)
	}
	q := r.querier(dbc)
	tenant, err := r.tenant(dbc, q)
	if err != nil {
		return nil, err
	}
	fromPath, toPath := fmt.Sprint(fromVal), fmt.Sprint(toVal)
	if err := r.checkEndpoints(dbc, q, rel, schema.OpCreate, fromPath, toPath); err != nil {
		return nil, err
	}
	table := schema.ToTableReference(rel.Module, rel.Name)
	if replace {
		sqlStr, args := query.NewDelete(r.dialect, table).
			Where("(("+from+" = ? AND "+to+" = ?) OR ("+from+" = ? AND "+to+" = ?))",
				fromPath, toPath, toPath, fromPath).
			Build()
		if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
			return nil, err
		}
	}
	path := paths.New(rel.Module, rel.Name, "", "")
	out := inst.Clone().SetPath(path).SetAttribute(schema.TenantColumn, tenant)
	sqlStr, args := query.NewInsert(r.dialect, table).
		Set(schema.PathColumn, path).
		Set(from, fromPath).
		Set(to, toPath).
		Set(schema.TenantColumn, tenant).
		Set(schema.DeletedColumn, false).
		Build()
	if _, err := q.ExecContext(dbc.Ctx, sqlStr, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// endpointEntities resolves the two entities a between relationship joins.
func (r *SQLResolver) endpointEntities(rel *schema.Relationship) (*schema.Entity, *schema.Entity, error) {
	entFrom, ok := r.catalog.LookupEntity(rel.From)
	if !ok {
		return nil, nil, common.NewErrNotFound("entity " + rel.From)
	}
	entTo, ok := r.catalog.LookupEntity(rel.To)
	if !ok {
		return nil, nil, common.NewErrNotFound("entity " + rel.To)
	}
	return entFrom, entTo, nil
}

// checkEndpoints gates a between write on both connected instances. A link
// touches two rows, so the caller needs the operation on each endpoint.
func (r *SQLResolver) checkEndpoints(dbc *common.DbContext, q common.Querier, rel *schema.Relationship, op schema.Operation, fromPath, toPath string) error {
	entFrom, entTo, err := r.endpointEntities(rel)
	if err != nil {
		return err
	}
	if err := r.gate.Check(dbc, q, op, entFrom, fromPath); err != nil {
		return err
	}
	return r.gate.Check(dbc, q, op, entTo, toPath)
}

// checkLinkRow reads the link row's endpoint paths within the caller's
// tenant and gates the delete on both endpoints. A path outside the tenant
// is reported as not found.
func (r *SQLResolver) checkLinkRow(dbc *common.DbContext, q common.Querier, rel *schema.Relationship, path, tenant string) error {
	if dbc.KernelMode || !dbc.NeedAuthCheck {
		return nil
	}
	from, to := rel.Aliases()
	d := r.dialect
	sqlStr, args := query.NewSelect(d, d.QuoteIdent(from), d.QuoteIdent(to)).
		From(d.QuoteIdent(schema.ToTableReference(rel.Module, rel.Name))).
		Where(schema.PathColumn+" = ?", path).
		Where(schema.TenantColumn+" = ?", tenant).
		Build()
	var fromPath, toPath string
	err := q.QueryRowContext(dbc.Ctx, sqlStr, args...).Scan(&fromPath, &toPath)
	if err == sql.ErrNoRows {
		return common.NewErrNotFound("link " + path)
	}
	if err != nil {
		return err
	}
	return r.checkEndpoints(dbc, q, rel, schema.OpDelete, fromPath, toPath)
}

// indexInstance embeds the instance's full-text attributes and upserts the
// vector entry. Failures log a warning; the originating write already
// succeeded and the row store is the source of truth.
func (r *SQLResolver) indexInstance(dbc *common.DbContext, ent *schema.Entity, path string, inst *instance.Instance, tenant string) {
	if !r.vectors.IsSupported() {
		return
	}
	fts := ent.FullTextAttributes()
	if len(fts) == 0 {
		return
	}
	var parts []string
	for _, name := range fts {
		if v, ok := inst.Attribute(name); ok && v != nil {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	if len(parts) == 0 {
		return
	}
	embedder, err := vector.NewEmbedder(r.embed, ent)
	if err != nil {
		r.log.Warn("embedder unavailable", zap.String("entity", ent.Fq()), zap.Error(err))
		return
	}
	vec, err := embedder.EmbedText(dbc.Ctx, strings.Join(parts, "\n"))
	if err != nil {
		r.log.Warn("embedding failed", zap.String("path", path), zap.Error(err))
		return
	}
	if err := r.vectors.AddEmbedding(dbc.Ctx, ent, path, vec, tenant); err != nil {
		r.log.Warn("vector upsert failed", zap.String("path", path), zap.Error(err))
	}
}

func touchesFullText(ent *schema.Entity, attrs map[string]any) bool {
	fts := ent.FullTextAttributes()
	for _, name := range fts {
		if _, ok := attrs[name]; ok {
			return true
		}
	}
	return false
}

// StartTransaction opens a named transaction. At most one transaction may
// be active per resolver.
func (r *SQLResolver) StartTransaction(dbc *common.DbContext) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeTxn != "" {
		return "", &common.TransactionAlreadyActiveError{}
	}
	id, err := r.txns.Begin(dbc.Ctx, r.db)
	if err != nil {
		return "", err
	}
	r.activeTxn = id
	return id, nil
}

// CommitTransaction commits and releases the named session. The session is
// released on every exit path; a commit failure is logged and re-raised.
func (r *SQLResolver) CommitTransaction(dbc *common.DbContext, txnID string) (string, error) {
	err := r.txns.Commit(txnID)
	r.clearTxn(txnID)
	if err != nil {
		r.log.Error("commit failed", zap.String("txn", txnID), zap.Error(err))
		return "", err
	}
	return txnID, nil
}

// RollbackTransaction rolls back and releases the named session.
func (r *SQLResolver) RollbackTransaction(dbc *common.DbContext, txnID string) (string, error) {
	err := r.txns.Rollback(txnID)
	r.clearTxn(txnID)
	if err != nil {
		r.log.Error("rollback failed", zap.String("txn", txnID), zap.Error(err))
		return "", err
	}
	return txnID, nil
}

func (r *SQLResolver) clearTxn(txnID string) {
	r.mu.Lock()
	if r.activeTxn == txnID {
		r.activeTxn = ""
	}
	r.mu.Unlock()
}
