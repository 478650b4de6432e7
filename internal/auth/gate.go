// Package auth enforces per-row RBAC: global role permissions first, then
// ownership-table grants climbed along the containment path. Read paths
// that lack a global permission are constrained by an owners-table join
// pushed into the query.
package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/paths"
	"github.com/entigraph/entigraph-go-core/internal/query"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// Gate answers permission questions for one catalog and dialect. It holds
// no connection; every call runs on the session the resolver routes in.
type Gate struct {
	catalog *schema.Catalog
	dialect query.Dialect
	log     *zap.Logger
}

func NewGate(catalog *schema.Catalog, dialect query.Dialect, log *zap.Logger) *Gate {
	return &Gate{catalog: catalog, dialect: dialect, log: log}
}

// flag maps an operation to its owners-table column.
func flag(op schema.Operation) string {
	switch op {
	case schema.OpCreate:
		return "c"
	case schema.OpRead:
		return "r"
	case schema.OpUpdate:
		return "u"
	default:
		return "d"
	}
}

func bypass(dbc *common.DbContext) bool {
	return dbc.KernelMode || !dbc.NeedAuthCheck
}

// TenantOf resolves a user's tenant from the users table.
func (g *Gate) TenantOf(q common.Querier) func(ctx context.Context, userID string) (string, error) {
	return func(ctx context.Context, userID string) (string, error) {
		var tenant string
		sqlStr := fmt.Sprintf("SELECT tenant FROM %s WHERE user_id = %s",
			g.dialect.QuoteIdent("users"), g.dialect.Placeholder(1))
		err := q.QueryRowContext(ctx, sqlStr, userID).Scan(&tenant)
		if err == sql.ErrNoRows {
			return "", common.NewErrNotFound("tenant for user " + userID)
		}
		if err != nil {
			return "", err
		}
		return tenant, nil
	}
}

// canUser checks the global role/permission tables for the operation on
// the resource.
func (g *Gate) canUser(dbc *common.DbContext, q common.Querier, op schema.Operation, resourceFq string) (bool, error) {
	d := g.dialect
	sqlStr := fmt.Sprintf(
		"SELECT 1 FROM %s ra INNER JOIN %s rp ON rp.role = ra.role WHERE ra.user_id = %s AND rp.resource = %s AND rp.%s = true LIMIT 1",
		d.QuoteIdent("role_assignments"), d.QuoteIdent("role_permissions"),
		d.Placeholder(1), d.Placeholder(2), flag(op))
	var one int
	err := q.QueryRowContext(dbc.Ctx, sqlStr, dbc.UserID, resourceFq).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ownsPath checks the entity's owners table for a direct owner grant with
// the operation's flag.
func (g *Gate) ownsPath(dbc *common.DbContext, q common.Querier, entityFq, path string, op schema.Operation) (bool, error) {
	ent, ok := g.catalog.LookupEntity(entityFq)
	if !ok {
		return false, nil
	}
	d := g.dialect
	owners := schema.OwnersTable(schema.ToTableReference(ent.Module, ent.Name))
	sqlStr := fmt.Sprintf(
		"SELECT 1 FROM %s WHERE path = %s AND user_id = %s AND type = 'o' AND %s = true LIMIT 1",
		d.QuoteIdent(owners), d.Placeholder(1), d.Placeholder(2), flag(op))
	var one int
	err := q.QueryRowContext(dbc.Ctx, sqlStr, path, dbc.UserID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Check grants or denies an operation on one instance. Order: kernel-mode
// bypass, global role permission, then the ownership climb — the instance's
// own path first, then each ancestor, because a container's owner is
// granted access to all descendants.
func (g *Gate) Check(dbc *common.DbContext, q common.Querier, op schema.Operation, ent *schema.Entity, path string) error {
	if bypass(dbc) {
		return nil
	}
	ok, err := g.canUser(dbc, q, op, ent.Fq())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if path != "" {
		ok, err = g.ownsPath(dbc, q, ent.Fq(), path, op)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		for _, parent := range paths.ParentChain(path) {
			ok, err = g.ownsPath(dbc, q, parent.EntityFq, parent.Path, op)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
	return &common.UnauthorizedError{Opr: string(op), Entity: ent.Fq()}
}

// ReadScope returns the owners-table join constraining a read to rows the
// caller owns, or nil when the caller holds a global read permission.
// intent adds the u or d flag for update- and delete-intent reads.
func (g *Gate) ReadScope(dbc *common.DbContext, q common.Querier, ent *schema.Entity, intent schema.Operation) (*query.JoinClause, error) {
	if bypass(dbc) {
		return nil, nil
	}
	ok, err := g.canUser(dbc, q, schema.OpRead, ent.Fq())
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	d := g.dialect
	table := schema.ToTableReference(ent.Module, ent.Name)
	owners := schema.OwnersTable(table)
	on := fmt.Sprintf("%s.path = %s.%s AND %s.user_id = ? AND %s.r = true",
		d.QuoteIdent(owners), d.QuoteIdent(table), d.QuoteIdent(schema.PathColumn),
		d.QuoteIdent(owners), d.QuoteIdent(owners))
	args := []any{dbc.UserID}
	if intent == schema.OpUpdate || intent == schema.OpDelete {
		on += fmt.Sprintf(" AND %s.%s = true", d.QuoteIdent(owners), flag(intent))
	}
	return &query.JoinClause{Table: d.QuoteIdent(owners), On: on, Args: args}, nil
}

// CreateOwnerRow grants the creating user full CRUD on the new path.
func (g *Gate) CreateOwnerRow(dbc *common.DbContext, q common.Querier, ent *schema.Entity, path, tenant string) error {
	owners := schema.OwnersTable(schema.ToTableReference(ent.Module, ent.Name))
	sqlStr, args := query.NewInsert(g.dialect, owners).
		Set("id", uuid.NewString()).
		Set("path", path).
		Set("user_id", dbc.UserID).
		Set("type", "o").
		Set("c", true).
		Set("r", true).
		Set("u", true).
		Set("d", true).
		Set(schema.TenantColumn, tenant).
		Build()
	_, err := q.ExecContext(dbc.Ctx, sqlStr, args...)
	return err
}

// DeleteOwnerRows removes all grants on a purged path.
func (g *Gate) DeleteOwnerRows(dbc *common.DbContext, q common.Querier, ent *schema.Entity, path string) error {
	owners := schema.OwnersTable(schema.ToTableReference(ent.Module, ent.Name))
	sqlStr, args := query.NewDelete(g.dialect, owners).Where("path = ?", path).Build()
	_, err := q.ExecContext(dbc.Ctx, sqlStr, args...)
	return err
}
