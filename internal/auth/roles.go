package auth

import (
	"fmt"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/query"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// AuthTablesDDL emits the global user, role-assignment and role-permission
// tables consumed by the gate.
func AuthTablesDDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
  user_id varchar(256) PRIMARY KEY,
  tenant varchar(128) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS role_assignments (
  user_id varchar(256) NOT NULL,
  role varchar(128) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS role_permissions (
  role varchar(128) NOT NULL,
  resource varchar(512) NOT NULL,
  c boolean NOT NULL DEFAULT false,
  r boolean NOT NULL DEFAULT false,
  u boolean NOT NULL DEFAULT false,
  d boolean NOT NULL DEFAULT false
)`,
	}
}

// RegisterUser records a user's tenant. Kernel mode only.
func (g *Gate) RegisterUser(dbc *common.DbContext, q common.Querier, userID, tenant string) error {
	if !dbc.KernelMode {
		return common.NewUnauthorized("admin", "users")
	}
	sqlStr, args := query.NewInsert(g.dialect, "users").
		Set("user_id", userID).
		Set("tenant", tenant).
		Upsert("user_id").
		Build()
	_, err := q.ExecContext(dbc.Ctx, sqlStr, args...)
	return err
}

// GrantRole assigns a role to a user. Kernel mode only.
func (g *Gate) GrantRole(dbc *common.DbContext, q common.Querier, userID, role string) error {
	if !dbc.KernelMode {
		return common.NewUnauthorized("admin", "role_assignments")
	}
	sqlStr, args := query.NewInsert(g.dialect, "role_assignments").
		Set("user_id", userID).
		Set("role", role).
		Build()
	_, err := q.ExecContext(dbc.Ctx, sqlStr, args...)
	return err
}

// AllowOperation grants a role the listed operations on a resource.
// Kernel mode only.
func (g *Gate) AllowOperation(dbc *common.DbContext, q common.Querier, role, resourceFq string, ops ...schema.Operation) error {
	if !dbc.KernelMode {
		return common.NewUnauthorized("admin", "role_permissions")
	}
	b := query.NewInsert(g.dialect, "role_permissions").
		Set("role", role).
		Set("resource", resourceFq)
	flags := map[string]bool{"c": false, "r": false, "u": false, "d": false}
	for _, op := range ops {
		flags[flag(op)] = true
	}
	for _, f := range []string{"c", "r", "u", "d"} {
		b.Set(f, flags[f])
	}
	sqlStr, args := b.Build()
	_, err := q.ExecContext(dbc.Ctx, sqlStr, args...)
	return err
}

// SeedDeclaredRules writes the catalog's declared RBAC specs into the
// permission tables, used during schema load.
func (g *Gate) SeedDeclaredRules(dbc *common.DbContext, q common.Querier) error {
	if !dbc.KernelMode {
		return common.NewUnauthorized("admin", "role_permissions")
	}
	for _, spec := range g.catalog.AllRbacSpecs() {
		if err := g.AllowOperation(dbc, q, spec.Role, spec.Entity, spec.Allow...); err != nil {
			return fmt.Errorf("seeding rbac for %s: %w", spec.Entity, err)
		}
	}
	return nil
}
