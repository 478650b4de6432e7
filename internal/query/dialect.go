// Package query translates declarative query specifications into backend
// SQL. It provides a small, ORM-less builder with explicit, predictable
// output: dialect-numbered placeholders, accumulated args, deterministic
// clause ordering, no reflection.
package query

import (
	"fmt"
	"strings"
)

// Dialect abstracts the differences between the supported backends:
// placeholder style, identifier quoting and upsert syntax.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	QuoteIdent(ident string) string
	// UpsertSuffix emits the clause appended to an INSERT to turn it into
	// an upsert keyed on conflictColumn, updating updateColumns.
	UpsertSuffix(conflictColumn string, updateColumns []string) string
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) QuoteIdent(ident string) string { return `"` + ident + `"` }

func (d postgresDialect) UpsertSuffix(conflictColumn string, updateColumns []string) string {
	if len(updateColumns) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", d.QuoteIdent(conflictColumn))
	}
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", d.QuoteIdent(c), d.QuoteIdent(c))
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		d.QuoteIdent(conflictColumn), strings.Join(sets, ", "))
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) QuoteIdent(ident string) string { return "`" + ident + "`" }

func (d mysqlDialect) UpsertSuffix(conflictColumn string, updateColumns []string) string {
	if len(updateColumns) == 0 {
		updateColumns = []string{conflictColumn}
	}
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", d.QuoteIdent(c), d.QuoteIdent(c))
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) QuoteIdent(ident string) string { return `"` + ident + `"` }

func (d sqliteDialect) UpsertSuffix(conflictColumn string, updateColumns []string) string {
	if len(updateColumns) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", d.QuoteIdent(conflictColumn))
	}
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", d.QuoteIdent(c), d.QuoteIdent(c))
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		d.QuoteIdent(conflictColumn), strings.Join(sets, ", "))
}

// DialectFor returns the dialect for a configured store type.
func DialectFor(storeType string) (Dialect, error) {
	switch storeType {
	case "postgres":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("no SQL dialect for store type %q", storeType)
}
