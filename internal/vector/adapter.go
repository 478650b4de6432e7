// Package vector integrates the auxiliary semantic index. The row store is
// the source of truth; everything here is best-effort and failures are
// logged, never propagated into the originating operation.
package vector

import (
	"context"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// OwnerScope restricts a search to rows the user owns, used when the caller
// lacks a global read permission.
type OwnerScope struct {
	OwnersTable string
	UserID      string
}

// Adapter abstracts embedding upsert, search and delete over the two
// backends. Entries are keyed by the entity row's path.
type Adapter interface {
	// IsSupported gates all embedding work; a false return short-circuits
	// indexing and search so FTS-enabled entities still CRUD normally on a
	// non-vector deployment.
	IsSupported() bool

	AddEmbedding(ctx context.Context, ent *schema.Entity, id string, embedding []float32, tenant string) error
	// Search returns the ids (paths) of the nearest neighbors, scoped to
	// the tenant and optionally to owned rows.
	Search(ctx context.Context, ent *schema.Entity, embedding []float32, tenant string, limit int, owner *OwnerScope) ([]string, error)
	Exists(ctx context.Context, ent *schema.Entity, id string) (bool, error)
	Delete(ctx context.Context, ent *schema.Entity, id string) error
}

// NopAdapter is the disabled backend.
type NopAdapter struct{}

func (NopAdapter) IsSupported() bool { return false }

func (NopAdapter) AddEmbedding(context.Context, *schema.Entity, string, []float32, string) error {
	return nil
}

func (NopAdapter) Search(context.Context, *schema.Entity, []float32, string, int, *OwnerScope) ([]string, error) {
	return nil, nil
}

func (NopAdapter) Exists(context.Context, *schema.Entity, string) (bool, error) {
	return false, nil
}

func (NopAdapter) Delete(context.Context, *schema.Entity, string) error { return nil }

// NewAdapter selects the backend from configuration. An empty type yields
// the disabled adapter.
func NewAdapter(cfg common.VectorStoreConfig, deps AdapterDeps) (Adapter, error) {
	switch cfg.Type {
	case "":
		return NopAdapter{}, nil
	case "relational-vector":
		return NewRelationalAdapter(deps.DB, deps.StoreType)
	case "embedded-vector":
		return NewEmbeddedAdapter(cfg.Path)
	}
	return nil, common.NewInvalidArgument("unknown vector store type: " + cfg.Type)
}

// AdapterDeps carries the resources the backends need.
type AdapterDeps struct {
	DB        sqlDB
	StoreType string
}
