package query

import (
	"fmt"
	"strings"
)

// SelectBuilder builds SELECT statements with a fluent API. Predicates are
// written with ? markers; the builder rewrites them to the dialect's
// placeholder style and accumulates args in call order.
type SelectBuilder struct {
	dialect  Dialect
	columns  []string
	table    string
	joins    []string
	wheres   []string
	orderBy  []string
	groupBy  []string
	limit    *int
	offset   *int
	distinct bool
	args     []any
}

// NewSelect creates a SelectBuilder for the dialect. Columns are raw SQL
// expressions (already quoted by the caller).
func NewSelect(d Dialect, columns ...string) *SelectBuilder {
	return &SelectBuilder{dialect: d, columns: dedupe(columns)}
}

// From sets the base table.
func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

// Join appends an INNER JOIN. The on expression may contain ? markers for
// the given values.
func (b *SelectBuilder) Join(table, on string, values ...any) *SelectBuilder {
	b.joins = append(b.joins, fmt.Sprintf("INNER JOIN %s ON %s", table, b.rewrite(on, len(values))))
	b.args = append(b.args, values...)
	return b
}

// Where adds a predicate with ? markers and their values.
func (b *SelectBuilder) Where(predicate string, values ...any) *SelectBuilder {
	b.wheres = append(b.wheres, b.rewrite(predicate, len(values)))
	b.args = append(b.args, values...)
	return b
}

// WhereIn adds a column IN (...) predicate. An empty value list yields an
// always-false predicate.
func (b *SelectBuilder) WhereIn(column string, values ...any) *SelectBuilder {
	if len(values) == 0 {
		b.wheres = append(b.wheres, "1=0")
		return b
	}
	ph := make([]string, len(values))
	for i := range values {
		ph[i] = b.dialect.Placeholder(len(b.args) + i + 1)
	}
	b.wheres = append(b.wheres, fmt.Sprintf("%s IN (%s)", column, strings.Join(ph, ", ")))
	b.args = append(b.args, values...)
	return b
}

// OrderBy appends an ORDER BY expression.
func (b *SelectBuilder) OrderBy(expr string) *SelectBuilder {
	b.orderBy = append(b.orderBy, expr)
	return b
}

// GroupBy appends GROUP BY columns.
func (b *SelectBuilder) GroupBy(columns ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, dedupe(columns)...)
	return b
}

// Limit sets a LIMIT.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets an OFFSET.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Distinct adds DISTINCT to SELECT.
func (b *SelectBuilder) Distinct() *SelectBuilder {
	b.distinct = true
	return b
}

// Build assembles the final SQL string and the args in placeholder order.
func (b *SelectBuilder) Build() (string, []any) {
	if b.table == "" {
		panic("query: From(table) must be specified before Build()")
	}

	var sb strings.Builder
	sb.Grow(1024)

	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.columns, ", "))
	}

	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}

	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.wheres, " AND "))
	}

	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", *b.limit))
	}
	if b.offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", *b.offset))
	}

	return sb.String(), append([]any(nil), b.args...)
}

// rewrite replaces the first n ? markers with dialect placeholders numbered
// after the args already accumulated.
func (b *SelectBuilder) rewrite(expr string, n int) string {
	return rewriteMarkers(b.dialect, expr, len(b.args), n)
}

func rewriteMarkers(d Dialect, expr string, offset, n int) string {
	var sb strings.Builder
	seen := 0
	for _, r := range expr {
		if r == '?' && seen < n {
			seen++
			sb.WriteString(d.Placeholder(offset + seen))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
