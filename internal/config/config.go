// Package config provides configuration loading for mdsearch.
//
// Configuration is layered: hardcoded defaults, then a YAML file, then an
// optional secrets.toml, then environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Config holds the complete mdsearch configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Embedding     EmbeddingConfig     `koanf:"embedding"`
	VectorStore   VectorStoreConfig   `koanf:"vectorstore"`
	Chunking      ChunkingConfig      `koanf:"chunking"`
	Search        SearchConfig        `koanf:"search"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RequestTimeout  Duration `koanf:"request_timeout"`
	MaxBodyBytes    int64    `koanf:"max_body_bytes"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of: bedrock, openai, ollama, tei, fastembed.
	Provider string `koanf:"provider"`

	// Model is the provider-specific model identifier.
	Model string `koanf:"model"`

	// Dimension is the expected vector width. Every embedding is checked against it.
	Dimension int `koanf:"dimension"`

	// BaseURL is the endpoint for HTTP based providers (openai, ollama, tei).
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against the provider, when required.
	APIKey Secret `koanf:"api_key"`

	// Region is the AWS region for the bedrock provider.
	Region string `koanf:"region"`

	// CacheDir is where fastembed stores downloaded models.
	CacheDir string `koanf:"cache_dir"`

	// RequestsPerSecond throttles outgoing embedding calls. Zero disables throttling.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Timeout bounds a single embedding request.
	Timeout Duration `koanf:"timeout"`
}

// VectorStoreConfig selects and configures the vector store.
type VectorStoreConfig struct {
	// Provider is one of: chromem, qdrant, s3vectors.
	Provider  string          `koanf:"provider"`
	Chromem   ChromemConfig   `koanf:"chromem"`
	Qdrant    QdrantConfig    `koanf:"qdrant"`
	S3Vectors S3VectorsConfig `koanf:"s3vectors"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
	Compress   bool   `koanf:"compress"`
	InMemory   bool   `koanf:"in_memory"`
}

// QdrantConfig configures the Qdrant gRPC store.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Collection string `koanf:"collection"`
	UseTLS     bool   `koanf:"use_tls"`
	APIKey     Secret `koanf:"api_key"`
}

// S3VectorsConfig configures the Amazon S3 Vectors store.
type S3VectorsConfig struct {
	Region     string `koanf:"region"`
	BucketName string `koanf:"bucket_name"`
	IndexName  string `koanf:"index_name"`
}

// ChunkingConfig configures segmentation and metadata truncation.
type ChunkingConfig struct {
	MaxChunkSize    int  `koanf:"max_chunk_size"`
	HardBound       bool `koanf:"hard_bound"`
	MaxMetadataText int  `koanf:"max_metadata_text"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	DefaultTopK int `koanf:"default_top_k"`
	MaxTopK     int `koanf:"max_top_k"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	ServiceName     string  `koanf:"service_name"`
	Endpoint        string  `koanf:"endpoint"`
	Protocol        string  `koanf:"protocol"`
	Insecure        bool    `koanf:"insecure"`
	SampleRate      float64 `koanf:"sample_rate"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Supported providers.
var (
	EmbeddingProviders   = []string{"bedrock", "openai", "ollama", "tei", "fastembed"}
	VectorStoreProviders = []string{"chromem", "qdrant", "s3vectors"}
)

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = Duration(2 * time.Minute)
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "bedrock"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultModel(cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = DimensionForModel(cfg.Embedding.Model)
	}
	if cfg.Embedding.BaseURL == "" {
		switch cfg.Embedding.Provider {
		case "tei":
			cfg.Embedding.BaseURL = "http://localhost:8080"
		case "ollama":
			cfg.Embedding.BaseURL = "http://localhost:11434"
		}
	}
	if cfg.Embedding.Region == "" {
		cfg.Embedding.Region = "us-east-1"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = Duration(30 * time.Second)
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "~/.local/share/mdsearch/vectorstore"
	}
	if cfg.VectorStore.Chromem.Collection == "" {
		cfg.VectorStore.Chromem.Collection = "markdown_chunks"
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.VectorStore.Qdrant.Collection == "" {
		cfg.VectorStore.Qdrant.Collection = "markdown_chunks"
	}
	if cfg.VectorStore.S3Vectors.Region == "" {
		cfg.VectorStore.S3Vectors.Region = cfg.Embedding.Region
	}

	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = 1000
	}
	if cfg.Chunking.MaxMetadataText == 0 {
		cfg.Chunking.MaxMetadataText = 400
	}

	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 30
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "mdsearch"
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
	if cfg.Observability.Protocol == "" {
		cfg.Observability.Protocol = "grpc"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// defaultModel returns the default model identifier for an embedding provider.
func defaultModel(provider string) string {
	switch provider {
	case "bedrock":
		return "amazon.titan-embed-text-v2:0"
	case "openai":
		return "text-embedding-3-small"
	case "ollama":
		return "nomic-embed-text"
	case "tei", "fastembed":
		return "BAAI/bge-small-en-v1.5"
	default:
		return ""
	}
}

// DimensionForModel returns the known output width of a model, or 0 if unknown.
func DimensionForModel(model string) int {
	switch model {
	case "amazon.titan-embed-text-v2:0", "BAAI/bge-large-en-v1.5":
		return 1024
	case "amazon.titan-embed-text-v1", "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text", "BAAI/bge-base-en-v1.5":
		return 768
	case "BAAI/bge-small-en-v1.5", "sentence-transformers/all-MiniLM-L6-v2", "all-minilm":
		return 384
	default:
		return 0
	}
}

// Validate validates the configuration.
//
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	if !slices.Contains(EmbeddingProviders, c.Embedding.Provider) {
		errs = append(errs, fmt.Errorf("unsupported embedding provider %q (supported: %v)", c.Embedding.Provider, EmbeddingProviders))
	}
	if c.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding model is required"))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must be positive (unknown model %q needs embedding.dimension)", c.Embedding.Model))
	}
	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("embedding requests_per_second cannot be negative"))
	}
	switch c.Embedding.Provider {
	case "tei", "ollama":
		if c.Embedding.BaseURL == "" {
			errs = append(errs, fmt.Errorf("embedding base_url is required for provider %q", c.Embedding.Provider))
		}
	case "openai":
		if !c.Embedding.APIKey.IsSet() && c.Embedding.BaseURL == "" {
			errs = append(errs, errors.New("embedding api_key is required for provider \"openai\""))
		}
	}

	if !slices.Contains(VectorStoreProviders, c.VectorStore.Provider) {
		errs = append(errs, fmt.Errorf("unsupported vectorstore provider %q (supported: %v)", c.VectorStore.Provider, VectorStoreProviders))
	}
	if c.VectorStore.Provider == "s3vectors" {
		s3 := c.VectorStore.S3Vectors
		if s3.BucketName == "" || s3.IndexName == "" {
			errs = append(errs, errors.New("s3vectors bucket_name and index_name are required"))
		}
	}

	if c.Chunking.MaxChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunking max_chunk_size must be positive, got %d", c.Chunking.MaxChunkSize))
	}
	if c.Chunking.MaxMetadataText <= 0 {
		errs = append(errs, fmt.Errorf("chunking max_metadata_text must be positive, got %d", c.Chunking.MaxMetadataText))
	}

	if c.Search.DefaultTopK <= 0 || c.Search.DefaultTopK > c.Search.MaxTopK {
		errs = append(errs, fmt.Errorf("search default_top_k must be in [1, %d], got %d", c.Search.MaxTopK, c.Search.DefaultTopK))
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		errs = append(errs, errors.New("service name required when telemetry is enabled"))
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("observability sample_rate must be between 0 and 1, got %f", c.Observability.SampleRate))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
