// Package cli wires coderag's cobra command surface: index, ask, status,
// and cancel, all driving the same indexer/retriever core (spec.md §6's
// HTTP surface, expressed here as an in-process CLI adapter).
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sourcelens/coderag/internal/config"
	"github.com/sourcelens/coderag/internal/indexer"
	"github.com/sourcelens/coderag/internal/llmclient"
	"github.com/sourcelens/coderag/internal/retriever"
	"github.com/sourcelens/coderag/internal/store"
)

var cfgFile string

// app bundles the core collaborators every subcommand shares, built once in
// PersistentPreRunE so each subcommand only has to use them.
type app struct {
	cfg       *config.Config
	client    llmclient.Client
	st        store.Store
	ix        *indexer.Indexer
	retriever *retriever.Retriever
}

func newApp(cfg *config.Config) (*app, error) {
	client, err := llmclient.New(cfg.Ollama)
	if err != nil {
		return nil, fmt.Errorf("cli: building model client: %w", err)
	}

	var st store.Store
	switch strings.ToLower(cfg.Store.Backend) {
	case "sqlite":
		sqliteStore, err := store.NewSQLiteStore(cfg.Store.SQLitePath, cfg.Ollama.FallbackEmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("cli: opening sqlite store: %w", err)
		}
		st = sqliteStore
	default:
		memStore, err := store.NewMemoryStore()
		if err != nil {
			return nil, fmt.Errorf("cli: building in-memory store: %w", err)
		}
		st = memStore
	}

	return &app{
		cfg:       cfg,
		client:    client,
		st:        st,
		ix:        indexer.New(client, st, cfg.Indexing),
		retriever: retriever.New(client, st),
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "coderag",
	Short: "Index a codebase and ask questions about it over retrieval-augmented chat",
}

var currentApp *app

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to .coderag/config.yml")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		rootDir := "."
		if cfgFile != "" {
			// --config names <root>/.coderag/config.yml; the loader takes <root>.
			rootDir = filepath.Dir(filepath.Dir(cfgFile))
		}
		loader := config.NewLoader(rootDir)
		cfg, err := loader.Load()
		if err != nil {
			return fmt.Errorf("cli: loading configuration: %w", err)
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		currentApp = a
		return nil
	}

	rootCmd.AddCommand(indexCmd, statusCmd, cancelCmd, askCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command; main.go's only responsibility.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, shared by
// the index and ask commands so Ctrl-C always stops cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
