package vector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RelationalAdapter stores embeddings in a per-entity pgvector table
// alongside the row store. Only the postgres backend carries the vector
// column type.
type RelationalAdapter struct {
	db sqlDB
}

func NewRelationalAdapter(db sqlDB, storeType string) (*RelationalAdapter, error) {
	if storeType != "postgres" {
		return nil, common.NewInvalidArgument("relational-vector requires the postgres store, got " + storeType)
	}
	return &RelationalAdapter{db: db}, nil
}

func (a *RelationalAdapter) IsSupported() bool { return true }

func (a *RelationalAdapter) AddEmbedding(ctx context.Context, ent *schema.Entity, id string, embedding []float32, tenant string) error {
	table := schema.VectorTable(schema.ToTableReference(ent.Module, ent.Name))
	sqlStr := fmt.Sprintf(
		`INSERT INTO %q (id, embedding, %q, %q) VALUES ($1, $2, $3, false)
		 ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, %q = false`,
		table, schema.TenantColumn, schema.DeletedColumn, schema.DeletedColumn)
	_, err := a.db.ExecContext(ctx, sqlStr, id, VectorLiteral(embedding), tenant)
	return err
}

func (a *RelationalAdapter) Search(ctx context.Context, ent *schema.Entity, embedding []float32, tenant string, limit int, owner *OwnerScope) ([]string, error) {
	table := schema.VectorTable(schema.ToTableReference(ent.Module, ent.Name))
	var sb strings.Builder
	args := []any{tenant, VectorLiteral(embedding)}
	fmt.Fprintf(&sb, `SELECT %q.id FROM %q`, table, table)
	if owner != nil {
		fmt.Fprintf(&sb, ` INNER JOIN %q ON %q.path = %q.id AND %q.user_id = $3 AND %q.r = true`,
			owner.OwnersTable, owner.OwnersTable, table, owner.OwnersTable, owner.OwnersTable)
		args = append(args, owner.UserID)
	}
	fmt.Fprintf(&sb, ` WHERE %q.%q = $1 AND %q.%q = false ORDER BY %q.embedding <-> $2 LIMIT %d`,
		table, schema.TenantColumn, table, schema.DeletedColumn, table, limit)

	rows, err := a.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (a *RelationalAdapter) Exists(ctx context.Context, ent *schema.Entity, id string) (bool, error) {
	table := schema.VectorTable(schema.ToTableReference(ent.Module, ent.Name))
	var one int
	err := a.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %q WHERE id = $1 AND %q = false`, table, schema.DeletedColumn),
		id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *RelationalAdapter) Delete(ctx context.Context, ent *schema.Entity, id string) error {
	table := schema.VectorTable(schema.ToTableReference(ent.Module, ent.Name))
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q WHERE id = $1`, table), id)
	return err
}

// VectorLiteral renders an embedding in pgvector's input format.
func VectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
