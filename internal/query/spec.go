package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// Spec is the declarative description of a single read, decoupled from
// backend SQL. The resolver derives it from an instance's query maps and
// the join planner's output; Compile turns it into one SELECT.
type Spec struct {
	// QueryObj pairs each queried attribute with its operator; QueryVals
	// holds the corresponding comparison values.
	QueryObj  map[string]string
	QueryVals map[string]any
	// QueryOrder fixes predicate emission order. Attributes missing from
	// it (or the whole slice) fall back to sorted order, keeping emitted
	// SQL deterministic.
	QueryOrder []string

	Distinct       bool
	GroupBy        []string
	OrderBy        []string
	OrderDirection string

	// Aggregates maps result aliases to aggregate expressions; Into maps
	// result aliases to source column references. Either presence switches
	// the SELECT list from full rows to projections.
	Aggregates map[string]string
	Into       map[string]string

	JoinClauses  []JoinClause
	WhereClauses []Where

	// PathIn restricts the result to rows whose path is in the set, used
	// by the hybrid vector/SQL fusion.
	PathIn []string

	Limit  int
	Offset int
}

// JoinClause is one planned join: a quoted table expression and a rendered
// ON condition with ? markers for Args.
type JoinClause struct {
	Table string
	On    string
	Args  []any
}

// Where is one extra predicate outside the instance query maps.
type Where struct {
	Column string
	Op     string
	Value  any
}

// Operators recognized in instance queries.
var operators = map[string]string{
	"=":       "=",
	"<>":      "<>",
	"!=":      "<>",
	"<":       "<",
	"<=":      "<=",
	">":       ">",
	">=":      ">=",
	"like":    "LIKE",
	"between": "BETWEEN",
	"is":      "IS",
	"is not":  "IS NOT",
}

// Compile translates the spec into one SELECT over the given table for the
// caller's tenant. Every compiled statement masks soft-deleted rows and
// scopes to the tenant on the root table; joined tables carry the same pair
// on their own alias (the planner appends them to each ON).
func Compile(spec *Spec, table, tenant string, d Dialect) (string, []any, error) {
	b := NewSelect(d, selectColumns(spec, table, d)...).From(d.QuoteIdent(table))
	if spec.Distinct {
		b.Distinct()
	}

	for _, j := range spec.JoinClauses {
		b.Join(j.Table, j.On, j.Args...)
	}

	for _, attr := range predicateOrder(spec) {
		op := spec.QueryObj[attr]
		val := spec.QueryVals[attr]
		if err := appendPredicate(b, d, table, attr, op, val); err != nil {
			return "", nil, err
		}
	}

	for _, w := range spec.WhereClauses {
		if err := appendPredicate(b, d, table, w.Column, w.Op, w.Value); err != nil {
			return "", nil, err
		}
	}

	if len(spec.PathIn) > 0 {
		vals := make([]any, len(spec.PathIn))
		for i, p := range spec.PathIn {
			vals[i] = p
		}
		b.WhereIn(qcol(d, table, schema.PathColumn), vals...)
	}

	b.Where(fmt.Sprintf("%s.%s = ?", d.QuoteIdent(table), d.QuoteIdent(schema.DeletedColumn)), false)
	b.Where(fmt.Sprintf("%s.%s = ?", d.QuoteIdent(table), d.QuoteIdent(schema.TenantColumn)), tenant)

	for _, g := range spec.GroupBy {
		b.GroupBy(g)
	}
	dir := spec.OrderDirection
	if dir == "" {
		dir = "ASC"
	}
	for _, o := range spec.OrderBy {
		b.OrderBy(o + " " + dir)
	}
	if spec.Limit > 0 {
		b.Limit(spec.Limit)
	}
	if spec.Offset > 0 {
		b.Offset(spec.Offset)
	}

	sql, args := b.Build()
	return sql, args, nil
}

func selectColumns(spec *Spec, table string, d Dialect) []string {
	if len(spec.Aggregates) == 0 && len(spec.Into) == 0 {
		return []string{d.QuoteIdent(table) + ".*"}
	}
	var cols []string
	for _, alias := range sortedKeys(spec.Aggregates) {
		cols = append(cols, fmt.Sprintf("%s AS %s", spec.Aggregates[alias], d.QuoteIdent(alias)))
	}
	for _, alias := range sortedKeys(spec.Into) {
		cols = append(cols, fmt.Sprintf("%s AS %s", spec.Into[alias], d.QuoteIdent(alias)))
	}
	return cols
}

func predicateOrder(spec *Spec) []string {
	if len(spec.QueryObj) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var order []string
	for _, attr := range spec.QueryOrder {
		if _, ok := spec.QueryObj[attr]; ok && !seen[attr] {
			order = append(order, attr)
			seen[attr] = true
		}
	}
	var rest []string
	for attr := range spec.QueryObj {
		if !seen[attr] {
			rest = append(rest, attr)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// appendPredicate emits one (attr, op, val) clause. Null values rewrite
// equality to IS / IS NOT; any other operator on null is an error. BETWEEN
// expects a two-element array.
func appendPredicate(b *SelectBuilder, d Dialect, table, attr, op string, val any) error {
	sqlOp, ok := operators[strings.ToLower(op)]
	if !ok {
		return common.NewInvalidArgument("unknown operator: " + op)
	}
	col := columnRef(d, table, attr)

	if val == nil {
		switch sqlOp {
		case "=", "IS":
			b.Where(col + " IS NULL")
		case "<>", "IS NOT":
			b.Where(col + " IS NOT NULL")
		default:
			return &common.InvalidNullComparisonError{Op: op}
		}
		return nil
	}

	if sqlOp == "BETWEEN" {
		lo, hi, err := betweenBounds(val)
		if err != nil {
			return err
		}
		b.Where(col+" BETWEEN ? AND ?", lo, hi)
		return nil
	}

	b.Where(col+" "+sqlOp+" ?", val)
	return nil
}

func betweenBounds(val any) (any, any, error) {
	switch t := val.(type) {
	case []any:
		if len(t) == 2 {
			return t[0], t[1], nil
		}
	case []int:
		if len(t) == 2 {
			return t[0], t[1], nil
		}
	case []float64:
		if len(t) == 2 {
			return t[0], t[1], nil
		}
	case []string:
		if len(t) == 2 {
			return t[0], t[1], nil
		}
	default:
		return nil, nil, common.NewInvalidArgument("between requires an array value")
	}
	return nil, nil, common.NewInvalidArgument("between requires exactly two values")
}

// columnRef quotes table.attr; an attr already qualified with a dot is
// split and both halves quoted.
func columnRef(d Dialect, table, attr string) string {
	if i := strings.LastIndex(attr, "."); i >= 0 {
		return d.QuoteIdent(attr[:i]) + "." + d.QuoteIdent(strings.ToLower(attr[i+1:]))
	}
	return d.QuoteIdent(table) + "." + d.QuoteIdent(strings.ToLower(attr))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
