package vector

import (
	"context"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// EmbeddedAdapter stores embeddings in an on-disk chromem collection per
// module. Collections are opened lazily and cached; after first open the
// handles are treated as immutable.
type EmbeddedAdapter struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

func NewEmbeddedAdapter(path string) (*EmbeddedAdapter, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, err
	}
	return &EmbeddedAdapter{db: db, collections: map[string]*chromem.Collection{}}, nil
}

func (a *EmbeddedAdapter) IsSupported() bool { return true }

// collection returns the module's collection, opening it on first use.
// Embeddings are always supplied explicitly, so no embedding function is
// attached.
func (a *EmbeddedAdapter) collection(module string) (*chromem.Collection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.collections[module]; ok {
		return c, nil
	}
	c, err := a.db.GetOrCreateCollection(strings.ToLower(module), nil, nil)
	if err != nil {
		return nil, err
	}
	a.collections[module] = c
	return c, nil
}

func (a *EmbeddedAdapter) AddEmbedding(ctx context.Context, ent *schema.Entity, id string, embedding []float32, tenant string) error {
	col, err := a.collection(ent.Module)
	if err != nil {
		return err
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:        id,
		Embedding: embedding,
		Content:   id,
		Metadata: map[string]string{
			"tenant":   tenant,
			"resource": ent.Fq(),
		},
	})
}

func (a *EmbeddedAdapter) Search(ctx context.Context, ent *schema.Entity, embedding []float32, tenant string, limit int, owner *OwnerScope) ([]string, error) {
	col, err := a.collection(ent.Module)
	if err != nil {
		return nil, err
	}
	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if limit < n {
		n = limit
	}
	results, err := col.QueryEmbedding(ctx, embedding, n, map[string]string{
		"tenant":   tenant,
		"resource": ent.Fq(),
	}, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (a *EmbeddedAdapter) Exists(ctx context.Context, ent *schema.Entity, id string) (bool, error) {
	col, err := a.collection(ent.Module)
	if err != nil {
		return false, err
	}
	if _, err := col.GetByID(ctx, id); err != nil {
		return false, nil
	}
	return true, nil
}

func (a *EmbeddedAdapter) Delete(ctx context.Context, ent *schema.Entity, id string) error {
	col, err := a.collection(ent.Module)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, id)
}
