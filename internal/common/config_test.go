package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Store.Type)
	require.Equal(t, 100, cfg.Store.MaxOpenConnections)
	require.Equal(t, "WAL", cfg.Store.Sqlite.JournalMode)
	require.Equal(t, 5000, cfg.Store.Sqlite.BusyTimeoutMs)
	require.Equal(t, 1536, cfg.VectorStore.Dimensions)
	require.Equal(t, 512, cfg.Embedding.ChunkSize)
	require.Equal(t, 64, cfg.Embedding.ChunkOverlap)
	require.Empty(t, cfg.VectorStore.Type)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  type: postgres
  host: db.internal
  port: 5433
  username: app
  dbname: entities
vectorStore:
  type: relational-vector
  dimensions: 768
debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Store.Type)
	require.Equal(t, "db.internal", cfg.Store.Host)
	require.Equal(t, 5433, cfg.Store.Port)
	require.Equal(t, "relational-vector", cfg.VectorStore.Type)
	require.Equal(t, 768, cfg.VectorStore.Dimensions)
	require.True(t, cfg.Debug)
}

func TestLoadConfigRejectsUnknownStoreType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: oracle\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownVectorStoreType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vectorStore:\n  type: faiss\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yaml")
	require.Error(t, err)
}
