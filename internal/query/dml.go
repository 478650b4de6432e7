package query

import (
	"fmt"
	"strings"
)

// InsertBuilder builds INSERT statements, optionally as an upsert keyed on
// one conflict column.
type InsertBuilder struct {
	dialect     Dialect
	table       string
	columns     []string
	values      []any
	conflictCol string
}

// NewInsert creates an InsertBuilder for the table.
func NewInsert(d Dialect, table string) *InsertBuilder {
	return &InsertBuilder{dialect: d, table: table}
}

// Set records one column/value pair in call order.
func (b *InsertBuilder) Set(column string, value any) *InsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Upsert turns the insert into an upsert keyed on conflictColumn; all other
// columns are updated on conflict.
func (b *InsertBuilder) Upsert(conflictColumn string) *InsertBuilder {
	b.conflictCol = conflictColumn
	return b
}

// Build assembles the statement and args.
func (b *InsertBuilder) Build() (string, []any) {
	quoted := make([]string, len(b.columns))
	ph := make([]string, len(b.columns))
	for i, c := range b.columns {
		quoted[i] = b.dialect.QuoteIdent(c)
		ph[i] = b.dialect.Placeholder(i + 1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.dialect.QuoteIdent(b.table), strings.Join(quoted, ", "), strings.Join(ph, ", "))
	if b.conflictCol != "" {
		var update []string
		for _, c := range b.columns {
			if c != b.conflictCol {
				update = append(update, c)
			}
		}
		sql += " " + b.dialect.UpsertSuffix(b.conflictCol, update)
	}
	return sql, append([]any(nil), b.values...)
}

// UpdateBuilder builds UPDATE statements.
type UpdateBuilder struct {
	dialect   Dialect
	table     string
	columns   []string
	values    []any
	wheres    []string
	whereArgs []any
}

// NewUpdate creates an UpdateBuilder for the table.
func NewUpdate(d Dialect, table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: d, table: table}
}

// Set records one assignment.
func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Where adds a predicate with ? markers.
func (b *UpdateBuilder) Where(predicate string, values ...any) *UpdateBuilder {
	b.wheres = append(b.wheres, predicate)
	b.whereArgs = append(b.whereArgs, values...)
	return b
}

// Build assembles the statement and args: set values first, then where
// values, with placeholders numbered across both.
func (b *UpdateBuilder) Build() (string, []any) {
	sets := make([]string, len(b.columns))
	for i, c := range b.columns {
		sets[i] = fmt.Sprintf("%s = %s", b.dialect.QuoteIdent(c), b.dialect.Placeholder(i+1))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s", b.dialect.QuoteIdent(b.table), strings.Join(sets, ", "))
	if len(b.wheres) > 0 {
		offset := len(b.values)
		rendered := make([]string, len(b.wheres))
		consumed := 0
		for i, w := range b.wheres {
			markers := strings.Count(w, "?")
			rendered[i] = rewriteMarkers(b.dialect, w, offset+consumed, markers)
			consumed += markers
		}
		sql += " WHERE " + strings.Join(rendered, " AND ")
	}
	args := append([]any(nil), b.values...)
	return sql, append(args, b.whereArgs...)
}

// DeleteBuilder builds DELETE statements.
type DeleteBuilder struct {
	dialect Dialect
	table   string
	wheres  []string
	args    []any
}

// NewDelete creates a DeleteBuilder for the table.
func NewDelete(d Dialect, table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: d, table: table}
}

// Where adds a predicate with ? markers.
func (b *DeleteBuilder) Where(predicate string, values ...any) *DeleteBuilder {
	b.wheres = append(b.wheres, rewriteMarkers(b.dialect, predicate, len(b.args), len(values)))
	b.args = append(b.args, values...)
	return b
}

// Build assembles the statement and args.
func (b *DeleteBuilder) Build() (string, []any) {
	sql := "DELETE FROM " + b.dialect.QuoteIdent(b.table)
	if len(b.wheres) > 0 {
		sql += " WHERE " + strings.Join(b.wheres, " AND ")
	}
	return sql, append([]any(nil), b.args...)
}
