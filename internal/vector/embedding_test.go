package vector

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/schema"
)

func TestChunkerShortTextIsOneChunk(t *testing.T) {
	c := Chunker{Size: 10}
	require.Equal(t, []string{"hello"}, c.Split("hello"))
}

func TestChunkerOverlappingWindows(t *testing.T) {
	c := Chunker{Size: 4, Overlap: 2}
	chunks := c.Split("abcdefgh")
	require.Equal(t, []string{"abcd", "cdef", "efgh"}, chunks)
}

func TestChunkerDefaultsOnBadOverlap(t *testing.T) {
	c := Chunker{Size: 4, Overlap: 9}
	chunks := c.Split("abcdefgh")
	require.Equal(t, []string{"abcd", "efgh"}, chunks)
}

func TestLocalProviderIsDeterministic(t *testing.T) {
	p := LocalProvider{Dimensions: 32}
	a, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 32)
}

func TestLocalProviderIsNormalized(t *testing.T) {
	p := LocalProvider{Dimensions: 16}
	vec, err := p.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	var norm float64
	for _, f := range vec {
		norm += float64(f) * float64(f)
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

type fixedProvider struct {
	vecs []([]float32)
	call int
}

func (p *fixedProvider) Embed(context.Context, string) ([]float32, error) {
	v := p.vecs[p.call%len(p.vecs)]
	p.call++
	return v, nil
}

func TestEmbedTextAveragesChunks(t *testing.T) {
	e := &Embedder{
		Provider: &fixedProvider{vecs: [][]float32{{2, 0}, {0, 4}}},
		Chunker:  Chunker{Size: 4},
	}
	vec, err := e.EmbedText(context.Background(), "abcdefgh")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
}

func TestEmbedTextRejectsDimensionDrift(t *testing.T) {
	e := &Embedder{
		Provider: &fixedProvider{vecs: [][]float32{{1, 0}, {1, 0, 0}}},
		Chunker:  Chunker{Size: 4},
	}
	_, err := e.EmbedText(context.Background(), "abcdefgh")
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimension")
}

func TestNewProviderDefaultsToLocal(t *testing.T) {
	p, err := NewProvider(common.EmbeddingConfig{})
	require.NoError(t, err)
	require.IsType(t, LocalProvider{}, p)
}

func TestNewProviderRequiresEndpoint(t *testing.T) {
	_, err := NewProvider(common.EmbeddingConfig{Provider: "openai"})
	require.Error(t, err)
	require.True(t, common.IsInvalidArgument(err))
}

func TestNewEmbedderAppliesEntityOverrides(t *testing.T) {
	ent := &schema.Entity{
		Module: "acme", Name: "Doc",
		Embedding: &schema.EmbeddingConfig{ChunkSize: 128, ChunkOverlap: 16},
	}
	e, err := NewEmbedder(common.EmbeddingConfig{ChunkSize: 512, ChunkOverlap: 64}, ent)
	require.NoError(t, err)
	require.Equal(t, 128, e.Chunker.Size)
	require.Equal(t, 16, e.Chunker.Overlap)
}

func TestHTTPProviderParsesOpenAIResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.25,0.5]}]}`))
	}))
	defer srv.Close()

	p := &HTTPProvider{Endpoint: srv.URL, APIKey: "secret", Model: "m", Client: srv.Client()}
	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.25, 0.5}, vec)
}

func TestHTTPProviderSurfacesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := &HTTPProvider{Endpoint: srv.URL, Client: srv.Client()}
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
}
