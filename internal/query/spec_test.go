package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entigraph/entigraph-go-core/internal/common"
)

func TestCompileScopesTenantAndSoftDelete(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:  map[string]string{"age": ">"},
		QueryVals: map[string]any{"age": 30},
	}

	sql, args, err := Compile(spec, "acme_person", "T1", d)
	require.NoError(t, err)
	require.Equal(t,
		`SELECT "acme_person".* FROM "acme_person" WHERE "acme_person"."age" > $1 AND "acme_person"."__is_deleted__" = $2 AND "acme_person"."__tenant__" = $3`,
		sql)
	require.Equal(t, []any{30, false, "T1"}, args)
}

func TestCompileHonorsQueryOrder(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:   map[string]string{"a": "=", "b": "=", "c": "="},
		QueryVals:  map[string]any{"a": 1, "b": 2, "c": 3},
		QueryOrder: []string{"c", "a"},
	}

	sql, args, err := Compile(spec, "t", "T1", d)
	require.NoError(t, err)
	require.Equal(t,
		`SELECT "t".* FROM "t" WHERE "t"."c" = $1 AND "t"."a" = $2 AND "t"."b" = $3 AND "t"."__is_deleted__" = $4 AND "t"."__tenant__" = $5`,
		sql)
	require.Equal(t, []any{3, 1, 2, false, "T1"}, args)
}

func TestCompileRewritesNullEqualityToIsNull(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:  map[string]string{"manager": "="},
		QueryVals: map[string]any{"manager": nil},
	}

	sql, args, err := Compile(spec, "t", "T1", d)
	require.NoError(t, err)
	require.Contains(t, sql, `"t"."manager" IS NULL`)
	require.Equal(t, []any{false, "T1"}, args)
}

func TestCompileRewritesNullInequalityToIsNotNull(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:  map[string]string{"manager": "!="},
		QueryVals: map[string]any{"manager": nil},
	}

	sql, _, err := Compile(spec, "t", "T1", d)
	require.NoError(t, err)
	require.Contains(t, sql, `"t"."manager" IS NOT NULL`)
}

func TestCompileRejectsOrderedNullComparison(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:  map[string]string{"age": "<"},
		QueryVals: map[string]any{"age": nil},
	}

	_, _, err := Compile(spec, "t", "T1", d)
	require.Error(t, err)
	require.True(t, common.IsInvalidNullComparison(err))
}

func TestCompileBetween(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:  map[string]string{"age": "between"},
		QueryVals: map[string]any{"age": []int{18, 65}},
	}

	sql, args, err := Compile(spec, "t", "T1", d)
	require.NoError(t, err)
	require.Contains(t, sql, `"t"."age" BETWEEN $1 AND $2`)
	require.Equal(t, []any{18, 65, false, "T1"}, args)
}

func TestCompileBetweenRequiresTwoValues(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:  map[string]string{"age": "between"},
		QueryVals: map[string]any{"age": []int{18}},
	}

	_, _, err := Compile(spec, "t", "T1", d)
	require.Error(t, err)
	require.True(t, common.IsInvalidArgument(err))
}

func TestCompileRejectsUnknownOperator(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		QueryObj:  map[string]string{"age": "~~"},
		QueryVals: map[string]any{"age": 1},
	}

	_, _, err := Compile(spec, "t", "T1", d)
	require.Error(t, err)
	require.True(t, common.IsInvalidArgument(err))
}

func TestCompilePathInRestriction(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{PathIn: []string{"acme$Person/1", "acme$Person/2"}}

	sql, args, err := Compile(spec, "acme_person", "T1", d)
	require.NoError(t, err)
	require.Contains(t, sql, `"acme_person"."__path__" IN ($1, $2)`)
	require.Equal(t, []any{"acme$Person/1", "acme$Person/2", false, "T1"}, args)
}

func TestCompileEmptyPathInMatchesNothing(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{PathIn: nil}

	sql, _, err := Compile(spec, "t", "T1", d)
	require.NoError(t, err)
	require.NotContains(t, sql, "1=0")
}

func TestCompileAggregatesAndProjections(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{
		Aggregates: map[string]string{"headcount": `COUNT("t"."__path__")`},
		Into:       map[string]string{"dept": `"t"."department"`},
		GroupBy:    []string{`"t"."department"`},
	}

	sql, _, err := Compile(spec, "t", "T1", d)
	require.NoError(t, err)
	require.Contains(t, sql, `COUNT("t"."__path__") AS "headcount"`)
	require.Contains(t, sql, `"t"."department" AS "dept"`)
	require.Contains(t, sql, `GROUP BY "t"."department"`)
}

func TestCompileOrderDirectionDefaultsAscending(t *testing.T) {
	d, _ := DialectFor("postgres")
	spec := &Spec{OrderBy: []string{`"t"."name"`}}

	sql, _, err := Compile(spec, "t", "T1", d)
	require.NoError(t, err)
	require.Contains(t, sql, `ORDER BY "t"."name" ASC`)
}

func TestCompileMysqlDialect(t *testing.T) {
	d, _ := DialectFor("mysql")
	spec := &Spec{
		QueryObj:  map[string]string{"name": "like"},
		QueryVals: map[string]any{"name": "Jo%"},
	}

	sql, args, err := Compile(spec, "acme_person", "T1", d)
	require.NoError(t, err)
	require.Equal(t,
		"SELECT `acme_person`.* FROM `acme_person` WHERE `acme_person`.`name` LIKE ? AND `acme_person`.`__is_deleted__` = ? AND `acme_person`.`__tenant__` = ?",
		sql)
	require.Equal(t, []any{"Jo%", false, "T1"}, args)
}
