package config

import "fmt"

// Validate checks a Config for internally-inconsistent values.
func Validate(cfg *Config) error {
	if cfg.Indexing.MaxParallelism < 0 {
		return fmt.Errorf("indexing.max_parallelism must be >= 0 (0 means use all CPUs), got %d", cfg.Indexing.MaxParallelism)
	}
	if cfg.Indexing.EmbeddingBatchSize < 1 {
		return fmt.Errorf("indexing.embedding_batch_size must be >= 1, got %d", cfg.Indexing.EmbeddingBatchSize)
	}
	if cfg.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama.base_url must not be empty")
	}
	if cfg.Ollama.MaxRetries < 0 {
		return fmt.Errorf("ollama.max_retries must be >= 0, got %d", cfg.Ollama.MaxRetries)
	}
	if cfg.Ollama.FallbackEmbeddingDim < 1 {
		return fmt.Errorf("ollama.fallback_embedding_dimension must be >= 1, got %d", cfg.Ollama.FallbackEmbeddingDim)
	}
	switch cfg.Store.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", "memory", "sqlite", cfg.Store.Backend)
	}
	return nil
}
