package common

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"
)

// OpenStore establishes the row-store connection for the configured backend
// and applies pool settings. The returned dialect name matches the driver
// (postgres, mysql, sqlite) and is consumed by the query builder.
//
// Driver registration is left to the caller's imports; the wiring binary
// imports all three drivers blank.
func OpenStore(cfg StoreConfig) (*sql.DB, error) {
	var (
		driver string
		dsn    string
	)
	switch cfg.Type {
	case "postgres":
		driver = "postgres"
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password),
			cfg.Host, cfg.Port, cfg.DBName)
	case "mysql":
		driver = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
	case "sqlite":
		driver = "sqlite3"
		dsn = cfg.Sqlite.Path
	default:
		return nil, NewInvalidArgument("unknown store type: " + cfg.Type)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Type == "sqlite" {
		if err := applySqlitePragmas(db, cfg.Sqlite); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func applySqlitePragmas(db *sql.DB, cfg SqliteConfig) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", cfg.JournalMode),
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMs),
		fmt.Sprintf("PRAGMA cache_size = -%d", cfg.CacheSizeKB),
		fmt.Sprintf("PRAGMA temp_store = %s", cfg.TempStore),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.Synchronous),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return nil
}

// ApplySchemaFile executes a generated SQL schema file against the store.
// This is the hook where migration output is applied; deriving the SQL from
// schema diffs happens elsewhere. An empty path is a no-op.
func ApplySchemaFile(db *sql.DB, schemaFilePath string) error {
	if schemaFilePath == "" {
		return nil
	}
	queryString, err := os.ReadFile(schemaFilePath)
	if err != nil {
		return err
	}
	if _, err := db.Exec(string(queryString)); err != nil {
		return err
	}
	return nil
}
