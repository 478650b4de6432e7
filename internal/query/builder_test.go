package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectBuilderNumbersPostgresPlaceholders(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)

	sql, args := NewSelect(d, `"t".*`).
		From(`"t"`).
		Where(`"t"."a" = ?`, 1).
		Where(`"t"."b" LIKE ?`, "x%").
		Build()

	require.Equal(t, `SELECT "t".* FROM "t" WHERE "t"."a" = $1 AND "t"."b" LIKE $2`, sql)
	require.Equal(t, []any{1, "x%"}, args)
}

func TestSelectBuilderKeepsQuestionMarksForSqlite(t *testing.T) {
	d, err := DialectFor("sqlite")
	require.NoError(t, err)

	sql, args := NewSelect(d).
		From(`"t"`).
		Where(`"t"."a" = ?`, 1).
		Build()

	require.Equal(t, `SELECT * FROM "t" WHERE "t"."a" = ?`, sql)
	require.Equal(t, []any{1}, args)
}

func TestSelectBuilderJoinArgsPrecedeWhereArgs(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, args := NewSelect(d, `"a".*`).
		From(`"a"`).
		Join(`"b"`, `"b"."ref" = "a"."id" AND "b"."live" = ?`, true).
		Where(`"a"."name" = ?`, "n").
		Build()

	require.Equal(t, `SELECT "a".* FROM "a" INNER JOIN "b" ON "b"."ref" = "a"."id" AND "b"."live" = $1 WHERE "a"."name" = $2`, sql)
	require.Equal(t, []any{true, "n"}, args)
}

func TestSelectBuilderWhereIn(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, args := NewSelect(d).
		From(`"t"`).
		Where(`"t"."x" = ?`, 7).
		WhereIn(`"t"."p"`, "p1", "p2").
		Build()

	require.Equal(t, `SELECT * FROM "t" WHERE "t"."x" = $1 AND "t"."p" IN ($2, $3)`, sql)
	require.Equal(t, []any{7, "p1", "p2"}, args)
}

func TestSelectBuilderWhereInEmptyIsAlwaysFalse(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, args := NewSelect(d).From(`"t"`).WhereIn(`"t"."p"`).Build()

	require.Equal(t, `SELECT * FROM "t" WHERE 1=0`, sql)
	require.Empty(t, args)
}

func TestSelectBuilderTrailingClauses(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, _ := NewSelect(d, `"t"."a"`).
		From(`"t"`).
		Distinct().
		GroupBy(`"t"."a"`).
		OrderBy(`"t"."a" DESC`).
		Limit(10).
		Offset(20).
		Build()

	require.Equal(t, `SELECT DISTINCT "t"."a" FROM "t" GROUP BY "t"."a" ORDER BY "t"."a" DESC LIMIT 10 OFFSET 20`, sql)
}

func TestSelectBuilderDedupesColumns(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, _ := NewSelect(d, `"t"."a"`, `"t"."b"`, `"t"."a"`).From(`"t"`).Build()

	require.Equal(t, `SELECT "t"."a", "t"."b" FROM "t"`, sql)
}

func TestSelectBuilderPanicsWithoutTable(t *testing.T) {
	d, _ := DialectFor("postgres")
	require.Panics(t, func() { NewSelect(d).Build() })
}
