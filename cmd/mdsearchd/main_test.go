package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
	"github.com/fyrsmithlabs/mdsearch/internal/telemetry"
)

func TestRun_ConfigOutsideAllowedDirs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	err := run(context.Background(), options{configPath: filepath.Join(t.TempDir(), "config.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRun_PipelineFailure(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MDSEARCH_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("MDSEARCH_EMBEDDING_MODEL", "nomic-embed-text")
	t.Setenv("MDSEARCH_VECTORSTORE_PROVIDER", "chromem")

	// A regular file where the store directory should be.
	blocker := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	t.Setenv("MDSEARCH_VECTORSTORE_CHROMEM_PATH", blocker)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := run(ctx, options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector store")
}

func TestInitLogger(t *testing.T) {
	cfg := config.Default()
	tel, err := telemetry.New(context.Background(), telemetry.NewDefaultConfig())
	require.NoError(t, err)

	for _, mcpMode := range []bool{false, true} {
		logger, err := initLogger(cfg, tel, mcpMode)
		require.NoError(t, err)
		assert.NotNil(t, logger.Underlying())
	}

	cfg.Logging.Level = "loud"
	_, err = initLogger(cfg, tel, false)
	assert.Error(t, err)
}
