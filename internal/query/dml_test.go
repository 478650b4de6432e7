package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertBuilderPostgres(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, args := NewInsert(d, "acme_person").
		Set("__path__", "acme$Person/1").
		Set("name", "Ada").
		Build()

	require.Equal(t, `INSERT INTO "acme_person" ("__path__", "name") VALUES ($1, $2)`, sql)
	require.Equal(t, []any{"acme$Person/1", "Ada"}, args)
}

func TestInsertBuilderUpsertPostgres(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, _ := NewInsert(d, "acme_person").
		Set("__path__", "p").
		Set("name", "Ada").
		Upsert("__path__").
		Build()

	require.Equal(t,
		`INSERT INTO "acme_person" ("__path__", "name") VALUES ($1, $2) ON CONFLICT ("__path__") DO UPDATE SET "name" = EXCLUDED."name"`,
		sql)
}

func TestInsertBuilderUpsertMysql(t *testing.T) {
	d, _ := DialectFor("mysql")

	sql, _ := NewInsert(d, "acme_person").
		Set("__path__", "p").
		Set("name", "Ada").
		Upsert("__path__").
		Build()

	require.Equal(t,
		"INSERT INTO `acme_person` (`__path__`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)",
		sql)
}

func TestUpdateBuilderNumbersAcrossSetAndWhere(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, args := NewUpdate(d, "acme_person").
		Set("name", "Ada").
		Set("age", 36).
		Where("__path__ = ?", "p").
		Where("__tenant__ = ?", "T1").
		Build()

	require.Equal(t,
		`UPDATE "acme_person" SET "name" = $1, "age" = $2 WHERE __path__ = $3 AND __tenant__ = $4`,
		sql)
	require.Equal(t, []any{"Ada", 36, "p", "T1"}, args)
}

func TestDeleteBuilder(t *testing.T) {
	d, _ := DialectFor("postgres")

	sql, args := NewDelete(d, "acme_worksin").
		Where("((a1 = ? AND a2 = ?) OR (a1 = ? AND a2 = ?))", "p1", "p2", "p2", "p1").
		Build()

	require.Equal(t,
		`DELETE FROM "acme_worksin" WHERE ((a1 = $1 AND a2 = $2) OR (a1 = $3 AND a2 = $4))`,
		sql)
	require.Equal(t, []any{"p1", "p2", "p2", "p1"}, args)
}

func TestDialectForRejectsUnknownStore(t *testing.T) {
	_, err := DialectFor("oracle")
	require.Error(t, err)
}
