package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/entigraph/entigraph-go-core/internal/auth"
	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/query"
	"github.com/entigraph/entigraph-go-core/internal/resolver"
	"github.com/entigraph/entigraph-go-core/internal/schema"
	"github.com/entigraph/entigraph-go-core/internal/txn"
	"github.com/entigraph/entigraph-go-core/internal/vector"
)

func run(ctx context.Context, configPath, schemaPath, sqlSchemaPath string) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log, err := common.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := common.OpenStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	if err := common.ApplySchemaFile(db, sqlSchemaPath); err != nil {
		return fmt.Errorf("applying SQL schema: %w", err)
	}

	catalog, err := schema.LoadDocument(schemaPath)
	if err != nil {
		return fmt.Errorf("loading schema document: %w", err)
	}
	dialect, err := query.DialectFor(cfg.Store.Type)
	if err != nil {
		return err
	}

	// Bootstrap: generated entity, owners, link and auth tables.
	kctx := common.KernelContext(ctx)
	for _, ddl := range auth.AuthTablesDDL() {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating auth tables: %w", err)
		}
	}
	for _, e := range catalog.AllEntities() {
		stmts := []string{
			schema.CreateTableDDL(e, cfg.Store.Type),
			schema.OwnersTableDDL(e, cfg.Store.Type),
		}
		if len(e.FullTextAttributes()) > 0 && cfg.VectorStore.Type == "relational-vector" {
			stmts = append(stmts, schema.VectorTableDDL(e, cfg.Store.Type, cfg.VectorStore.Dimensions))
		}
		for _, ddl := range stmts {
			if _, err := db.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("creating tables for %s: %w", e.Fq(), err)
			}
		}
	}
	for _, r := range catalog.AllRelationships() {
		if r.Kind != schema.Between {
			continue
		}
		if _, err := db.ExecContext(ctx, schema.BetweenTableDDL(r, cfg.Store.Type)); err != nil {
			return fmt.Errorf("creating link table for %s: %w", r.Fq(), err)
		}
	}

	vectors, err := vector.NewAdapter(cfg.VectorStore, vector.AdapterDeps{DB: db, StoreType: cfg.Store.Type})
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}

	gate := auth.NewGate(catalog, dialect, log)
	if err := gate.SeedDeclaredRules(kctx, db); err != nil {
		return fmt.Errorf("seeding rbac rules: %w", err)
	}

	res := resolver.NewSQLResolver(db, dialect, catalog, gate, vectors, cfg.Embedding, txn.NewManager(), log)
	log.Info("entity store ready",
		zap.String("store", cfg.Store.Type),
		zap.String("vectorStore", cfg.VectorStore.Type),
		zap.Int("entities", len(catalog.AllEntities())),
		zap.Int("capabilities", len(res.Capabilities())))

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	schemaPath := flag.String("schema", "schema.yaml", "Path to the declared schema document")
	sqlSchemaPath := flag.String("sql-schema", "", "Optional generated SQL schema file applied at startup")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *schemaPath, *sqlSchemaPath); err != nil {
		fmt.Fprintln(os.Stderr, "entitystoreservice:", err)
		os.Exit(1)
	}
}
