package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .coderag/config.yml when present
// - Environment variables override config file values
// - Validate() rejects bad max_parallelism, batch size, base url, dimension, backend

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, 50, cfg.Indexing.EmbeddingBatchSize)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, 3, cfg.Ollama.MaxRetries)
	assert.Equal(t, 384, cfg.Ollama.FallbackEmbeddingDim)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Ollama.ChatModel)
	assert.Greater(t, cfg.Indexing.MaxParallelism, 0)
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".coderag"), 0o755))
	yaml := []byte("ollama:\n  base_url: http://models.internal:9000\n  chat_model: mistral\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".coderag", "config.yml"), yaml, 0o644))

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://models.internal:9000", cfg.Ollama.BaseURL)
	assert.Equal(t, "mistral", cfg.Ollama.ChatModel)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".coderag"), 0o755))
	yaml := []byte("ollama:\n  base_url: http://models.internal:9000\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".coderag", "config.yml"), yaml, 0o644))

	t.Setenv("CODERAG_OLLAMA_BASE_URL", "http://override:1234")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://override:1234", cfg.Ollama.BaseURL)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	base := Default()

	cfg := *base
	cfg.Indexing.MaxParallelism = -1
	assert.Error(t, Validate(&cfg))

	cfg = *base
	cfg.Indexing.EmbeddingBatchSize = 0
	assert.Error(t, Validate(&cfg))

	cfg = *base
	cfg.Ollama.BaseURL = ""
	assert.Error(t, Validate(&cfg))

	cfg = *base
	cfg.Ollama.FallbackEmbeddingDim = 0
	assert.Error(t, Validate(&cfg))

	cfg = *base
	cfg.Store.Backend = "postgres"
	assert.Error(t, Validate(&cfg))
}
