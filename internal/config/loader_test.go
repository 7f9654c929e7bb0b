package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the mdsearch config dir inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "mdsearch")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	return dir
}

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	// WriteFile is subject to umask; force the mode under test.
	require.NoError(t, os.Chmod(path, perm))
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")

	writeFile(t, path, `server:
  http_port: 8088
  shutdown_timeout: 3s
embedding:
  provider: tei
  model: BAAI/bge-small-en-v1.5
vectorstore:
  provider: qdrant
  qdrant:
    host: qdrant.internal
    collection: docs
chunking:
  max_chunk_size: 600
  hard_bound: true
observability:
  enable_telemetry: true
  service_name: mdsearch-test
`, 0o600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "tei", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, "http://localhost:8080", cfg.Embedding.BaseURL)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "docs", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 600, cfg.Chunking.MaxChunkSize)
	assert.True(t, cfg.Chunking.HardBound)
	assert.Equal(t, 400, cfg.Chunking.MaxMetadataText)
	assert.True(t, cfg.Observability.EnableTelemetry)
	assert.Equal(t, "mdsearch-test", cfg.Observability.ServiceName)
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "bedrock", cfg.Embedding.Provider)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", cfg.Embedding.Model)
	assert.Equal(t, 1024, cfg.Embedding.Dimension)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, 1000, cfg.Chunking.MaxChunkSize)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "server:\n  http_port: 8088\n", 0o600)

	t.Setenv("MDSEARCH_SERVER_HTTP_PORT", "7077")
	t.Setenv("MDSEARCH_EMBEDDING_PROVIDER", "openai")
	t.Setenv("MDSEARCH_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("MDSEARCH_VECTORSTORE_QDRANT_HOST", "env-host")
	t.Setenv("MDSEARCH_CHUNKING_MAX_METADATA_TEXT", "120")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7077, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey.Value())
	assert.Equal(t, "env-host", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 120, cfg.Chunking.MaxMetadataText)
}

func TestLoad_SecretsOverlay(t *testing.T) {
	dir := setupTestHome(t)
	secrets := filepath.Join(t.TempDir(), "secrets.toml")
	writeFile(t, secrets, `[aws]
region = "ap-northeast-1"
bucket_name = "md-bucket"
index_name = "md-index"

[bedrock]
embedding_model_id = "amazon.titan-embed-text-v2:0"
`, 0o600)

	cfg, err := Load(Options{
		ConfigPath:  filepath.Join(dir, "config.yaml"),
		SecretsPath: secrets,
	})
	require.NoError(t, err)

	assert.Equal(t, "bedrock", cfg.Embedding.Provider)
	assert.Equal(t, "ap-northeast-1", cfg.Embedding.Region)
	assert.Equal(t, "s3vectors", cfg.VectorStore.Provider)
	assert.Equal(t, "ap-northeast-1", cfg.VectorStore.S3Vectors.Region)
	assert.Equal(t, "md-bucket", cfg.VectorStore.S3Vectors.BucketName)
	assert.Equal(t, "md-index", cfg.VectorStore.S3Vectors.IndexName)
}

func TestLoad_EnvBeatsSecrets(t *testing.T) {
	dir := setupTestHome(t)
	secrets := filepath.Join(t.TempDir(), "secrets.toml")
	writeFile(t, secrets, "[aws]\nbucket_name = \"md-bucket\"\nindex_name = \"md-index\"\n", 0o600)

	t.Setenv("MDSEARCH_VECTORSTORE_PROVIDER", "chromem")

	cfg, err := Load(Options{ConfigPath: filepath.Join(dir, "config.yaml"), SecretsPath: secrets})
	require.NoError(t, err)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
}

func TestReadSecrets_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	writeFile(t, path, "[aws]\nregoin = \"typo\"\n", 0o600)

	_, err := ReadSecrets(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestLoadWithFile_PathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")
}

func TestLoadWithFile_PrefixLookalikeRejected(t *testing.T) {
	dir := setupTestHome(t)
	sibling := dir + "-evil"
	require.NoError(t, os.MkdirAll(sibling, 0o700))

	_, err := LoadWithFile(filepath.Join(sibling, "config.yaml"))
	require.Error(t, err)
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "server:\n  http_port: 8088\n", 0o666)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_TooLarge(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "# "+strings.Repeat("x", maxConfigFileSize), 0o600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file too large")
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `embedding:
  provider: word2vec
vectorstore:
  provider: pinecone
`, 0o600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported embedding provider")
	assert.Contains(t, err.Error(), "unsupported vectorstore provider")
}

func TestEnvKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"MDSEARCH_SERVER_HTTP_PORT", "server.http_port"},
		{"MDSEARCH_EMBEDDING_REQUESTS_PER_SECOND", "embedding.requests_per_second"},
		{"MDSEARCH_VECTORSTORE_PROVIDER", "vectorstore.provider"},
		{"MDSEARCH_VECTORSTORE_CHROMEM_IN_MEMORY", "vectorstore.chromem.in_memory"},
		{"MDSEARCH_VECTORSTORE_S3VECTORS_BUCKET_NAME", "vectorstore.s3vectors.bucket_name"},
		{"MDSEARCH_DEBUG", "debug"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envKey(tt.in), tt.in)
	}
}
