package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// Provider turns text into an embedding vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits long text into overlapping windows before embedding.
type Chunker struct {
	Size    int
	Overlap int
}

// Split returns the chunks of text. Text that fits one window comes back
// whole.
func (c Chunker) Split(text string) []string {
	size := c.Size
	if size <= 0 {
		size = 512
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Embedder pairs a provider with a chunker. Text exceeding one chunk is
// embedded per chunk and the dimension-wise average returned.
type Embedder struct {
	Provider Provider
	Chunker  Chunker
}

// NewEmbedder builds an embedder from environment defaults, or from an
// entity's own embedding config when it carries one.
func NewEmbedder(cfg common.EmbeddingConfig, ent *schema.Entity) (*Embedder, error) {
	if ent != nil && ent.Embedding != nil {
		e := ent.Embedding
		if e.Provider != "" {
			cfg.Provider = e.Provider
		}
		if e.Model != "" {
			cfg.Model = e.Model
		}
		if e.ChunkSize > 0 {
			cfg.ChunkSize = e.ChunkSize
		}
		if e.ChunkOverlap > 0 {
			cfg.ChunkOverlap = e.ChunkOverlap
		}
	}
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Embedder{
		Provider: p,
		Chunker:  Chunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
	}, nil
}

// EmbedText embeds the text, averaging chunk embeddings when the text spans
// multiple chunks.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	chunks := e.Chunker.Split(text)
	if len(chunks) == 1 {
		return e.Provider.Embed(ctx, chunks[0])
	}
	var sum []float64
	for _, chunk := range chunks {
		vec, err := e.Provider.Embed(ctx, chunk)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			return nil, fmt.Errorf("embedding dimension changed between chunks: %d vs %d", len(vec), len(sum))
		}
		for i, f := range vec {
			sum[i] += float64(f)
		}
	}
	out := make([]float32, len(sum))
	for i, f := range sum {
		out[i] = float32(f / float64(len(chunks)))
	}
	return out, nil
}

// NewProvider selects the provider implementation. An empty or "local"
// provider yields the deterministic hash embedder, useful for tests and
// offline deployments; anything else is treated as an OpenAI-compatible
// HTTP endpoint.
func NewProvider(cfg common.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "local":
		return LocalProvider{Dimensions: 64}, nil
	default:
		if cfg.Endpoint == "" {
			return nil, common.NewInvalidArgument("embedding provider " + cfg.Provider + " requires an endpoint")
		}
		return &HTTPProvider{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Client:   http.DefaultClient,
		}, nil
	}
}

// HTTPProvider calls an OpenAI-compatible embeddings endpoint.
type HTTPProvider struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": p.Model,
		"input": text,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding endpoint returned %s", resp.Status)
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding endpoint returned no data")
	}
	return parsed.Data[0].Embedding, nil
}

// LocalProvider produces deterministic embeddings from token hashes. It is
// not semantically meaningful but preserves exact-text matches, which is
// enough for offline runs and tests.
type LocalProvider struct {
	Dimensions int
}

func (p LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	dims := p.Dimensions
	if dims <= 0 {
		dims = 64
	}
	vec := make([]float32, dims)
	h := fnv.New64a()
	token := make([]rune, 0, 16)
	flush := func() {
		if len(token) == 0 {
			return
		}
		h.Reset()
		_, _ = h.Write([]byte(string(token)))
		sum := h.Sum64()
		vec[sum%uint64(dims)] += 1
		token = token[:0]
	}
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			flush()
			continue
		}
		token = append(token, r)
	}
	flush()
	var norm float64
	for _, f := range vec {
		norm += float64(f) * float64(f)
	}
	if norm > 0 {
		inv := 1 / float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}
