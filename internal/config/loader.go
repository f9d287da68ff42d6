package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads coderag configuration from file, environment, and defaults.
type Loader interface {
	// Load loads configuration with priority (highest to lowest):
	// 1. Environment variables (CODERAG_*)
	// 2. Config file (<rootDir>/.coderag/config.yml)
	// 3. Default values
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader rooted at rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".coderag")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CODERAG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("indexing.max_parallelism")
	v.BindEnv("indexing.embedding_batch_size")
	v.BindEnv("ollama.base_url")
	v.BindEnv("ollama.embedding_model")
	v.BindEnv("ollama.chat_model")
	v.BindEnv("ollama.request_timeout_minutes")
	v.BindEnv("ollama.max_retries")
	v.BindEnv("ollama.retry_delay_seconds")
	v.BindEnv("ollama.fallback_embedding_dimension")
	v.BindEnv("store.backend")
	v.BindEnv("store.sqlite_path")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Indexing.MaxParallelism <= 0 {
		cfg.Indexing.MaxParallelism = runtime.NumCPU()
	}
	cfg.Ollama.HealthCheckTimeout = Default().Ollama.HealthCheckTimeout

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("indexing.max_parallelism", d.Indexing.MaxParallelism)
	v.SetDefault("indexing.embedding_batch_size", d.Indexing.EmbeddingBatchSize)
	v.SetDefault("indexing.exclude_patterns", d.Indexing.ExcludePatterns)

	v.SetDefault("ollama.base_url", d.Ollama.BaseURL)
	v.SetDefault("ollama.embedding_model", d.Ollama.EmbeddingModel)
	v.SetDefault("ollama.chat_model", d.Ollama.ChatModel)
	v.SetDefault("ollama.request_timeout_minutes", d.Ollama.RequestTimeoutMinutes)
	v.SetDefault("ollama.max_retries", d.Ollama.MaxRetries)
	v.SetDefault("ollama.retry_delay_seconds", d.Ollama.RetryDelaySeconds)
	v.SetDefault("ollama.fallback_embedding_dimension", d.Ollama.FallbackEmbeddingDim)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
}
