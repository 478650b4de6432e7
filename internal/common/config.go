// Package common provides configuration management, store initialization,
// the explicit database context, and the error kinds shared by the entity
// store core. Configuration supports YAML files with environment variable
// overrides and validated defaults.
package common

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the complete configuration for the entity store core. It
// combines the row-store backend selection, the vector-store backend
// selection and the embedding provider parameters.
type Config struct {
	Store       StoreConfig       `mapstructure:"store" validate:"required"`
	VectorStore VectorStoreConfig `mapstructure:"vectorStore"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Debug       bool              `mapstructure:"debug"`
}

// StoreConfig selects and parameterizes the row-store backend.
type StoreConfig struct {
	// Type selects the backend: postgres, mysql or sqlite.
	Type     string `mapstructure:"type" validate:"required,oneof=postgres mysql sqlite"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`

	MaxOpenConnections     int `mapstructure:"maxOpenConnections"`
	MaxIdleConnections     int `mapstructure:"maxIdleConnections"`
	ConnMaxLifetimeMinutes int `mapstructure:"connMaxLifetimeMinutes"`

	// SQLite engine tuning, ignored by the server backends.
	Sqlite SqliteConfig `mapstructure:"sqlite"`
}

// SqliteConfig carries the engine tuning flags for the embedded backend.
type SqliteConfig struct {
	Path          string `mapstructure:"path"`
	JournalMode   string `mapstructure:"journalMode"`
	BusyTimeoutMs int    `mapstructure:"busyTimeoutMs"`
	CacheSizeKB   int    `mapstructure:"cacheSizeKB"`
	TempStore     string `mapstructure:"tempStore"`
	Synchronous   string `mapstructure:"synchronous"`
}

// VectorStoreConfig selects the auxiliary vector index. An empty Type
// disables vector search entirely; row-store CRUD is unaffected.
type VectorStoreConfig struct {
	Type string `mapstructure:"type" validate:"omitempty,oneof=relational-vector embedded-vector"`
	// Path is the on-disk location of the embedded vector database.
	Path string `mapstructure:"path"`
	// Dimensions of stored embeddings (relational backend column type).
	Dimensions int `mapstructure:"dimensions"`
}

// EmbeddingConfig parameterizes the text-to-embedding provider.
type EmbeddingConfig struct {
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	Endpoint     string `mapstructure:"endpoint"`
	APIKey       string `mapstructure:"apiKey"`
	ChunkSize    int    `mapstructure:"chunkSize"`
	ChunkOverlap int    `mapstructure:"chunkOverlap"`
}

// LoadConfig loads the configuration from an optional YAML file and the
// environment. Precedence, highest first: environment variables, config
// file, defaults. Environment keys replace dots with underscores, so
// STORE_TYPE overrides store.type.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.maxOpenConnections", 100)
	v.SetDefault("store.maxIdleConnections", 10)
	v.SetDefault("store.connMaxLifetimeMinutes", 5)
	v.SetDefault("store.sqlite.path", "entigraph.db")
	v.SetDefault("store.sqlite.journalMode", "WAL")
	v.SetDefault("store.sqlite.busyTimeoutMs", 5000)
	v.SetDefault("store.sqlite.cacheSizeKB", 20000)
	v.SetDefault("store.sqlite.tempStore", "MEMORY")
	v.SetDefault("store.sqlite.synchronous", "NORMAL")
	v.SetDefault("vectorStore.dimensions", 1536)
	v.SetDefault("embedding.chunkSize", 512)
	v.SetDefault("embedding.chunkOverlap", 64)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
