// Package config holds coderag's configuration: how many files to index in
// parallel, how to reach the embedding/chat model server, and which vector
// store backend to use.
package config

import "time"

// Config is the complete coderag configuration, loaded from .coderag/config.yml
// with environment variable overrides (CODERAG_*).
type Config struct {
	Indexing IndexingConfig `yaml:"indexing" mapstructure:"indexing"`
	Ollama   OllamaConfig   `yaml:"ollama" mapstructure:"ollama"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
}

// IndexingConfig controls the indexer's scan/embed/upsert loop.
type IndexingConfig struct {
	MaxParallelism     int      `yaml:"max_parallelism" mapstructure:"max_parallelism"`
	EmbeddingBatchSize int      `yaml:"embedding_batch_size" mapstructure:"embedding_batch_size"`
	ExcludePatterns    []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
}

// OllamaConfig configures the remote embedding/chat model server.
type OllamaConfig struct {
	BaseURL                  string        `yaml:"base_url" mapstructure:"base_url"`
	EmbeddingModel           string        `yaml:"embedding_model" mapstructure:"embedding_model"`
	ChatModel                string        `yaml:"chat_model" mapstructure:"chat_model"`
	RequestTimeoutMinutes    int           `yaml:"request_timeout_minutes" mapstructure:"request_timeout_minutes"`
	MaxRetries               int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySeconds        int           `yaml:"retry_delay_seconds" mapstructure:"retry_delay_seconds"`
	FallbackEmbeddingDim     int           `yaml:"fallback_embedding_dimension" mapstructure:"fallback_embedding_dimension"`
	HealthCheckTimeout       time.Duration `yaml:"-" mapstructure:"-"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"` // "memory" (default) or "sqlite"
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// RequestTimeout returns the configured model-request timeout as a duration.
func (o OllamaConfig) RequestTimeout() time.Duration {
	return time.Duration(o.RequestTimeoutMinutes) * time.Minute
}

// RetryDelayBase returns the configured retry delay base as a duration.
func (o OllamaConfig) RetryDelayBase() time.Duration {
	return time.Duration(o.RetryDelaySeconds) * time.Second
}

// Default returns a configuration with the defaults enumerated in spec.md §6.
func Default() *Config {
	return &Config{
		Indexing: IndexingConfig{
			MaxParallelism:     0, // 0 means "use runtime.NumCPU()" - resolved at load time
			EmbeddingBatchSize: 50,
			ExcludePatterns:    []string{`\bin\`, `\obj\`, `\.git\`, `\node_modules\`},
		},
		Ollama: OllamaConfig{
			BaseURL:               "http://localhost:11434",
			EmbeddingModel:        "nomic-embed-text",
			ChatModel:             "llama3",
			RequestTimeoutMinutes: 5,
			MaxRetries:            3,
			RetryDelaySeconds:     2,
			FallbackEmbeddingDim:  384,
			HealthCheckTimeout:    10 * time.Second,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
	}
}
