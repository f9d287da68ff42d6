package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/sourcelens/coderag/internal/indexer"
)

var watchIgnoreDirs = map[string]bool{
	".git": true, "node_modules": true, "bin": true, "obj": true,
}

var (
	indexQuiet    bool
	indexWatch    bool
	indexExcludes []string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Scan, chunk, and embed a codebase into the vector store",
	Long: `Index walks the given directory (the current directory if omitted),
detects the project's archetype, chunks every eligible file, embeds the
chunks, and stores them incrementally: unchanged files are skipped on
later runs.

With --watch, index stays running after the initial pass and re-indexes
individual files as they're saved, until interrupted with Ctrl-C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexQuiet, "quiet", false, "suppress progress output")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep running and re-index files on save")
	indexCmd.Flags().StringSliceVar(&indexExcludes, "exclude", nil, "additional exclude glob/substring patterns")
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("cli: resolving %s: %w", root, err)
	}

	excludes := append(append([]string{}, currentApp.cfg.Indexing.ExcludePatterns...), indexExcludes...)
	reporter := NewCLIProgressReporter(indexQuiet)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		<-ctx.Done()
		currentApp.ix.Cancel()
	}()

	if err := currentApp.ix.StartIndexing(ctx, absRoot, excludes, reporter); err != nil {
		return fmt.Errorf("cli: indexing %s: %w", absRoot, err)
	}

	if !indexWatch {
		return nil
	}
	return watchAndReindex(ctx, absRoot, excludes, reporter)
}

// watchAndReindex re-runs an incremental index whenever a file under root
// changes, until ctx is cancelled. A single run covers every event coalesced
// during its own execution, since StartIndexing always re-scans the whole
// tree and skips files whose mtime hasn't advanced.
func watchAndReindex(ctx context.Context, root string, excludes []string, reporter indexer.ProgressReporter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cli: starting file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root); err != nil {
		return fmt.Errorf("cli: watching %s: %w", root, err)
	}

	if !indexQuiet {
		fmt.Println("watching for changes, press Ctrl-C to stop")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := currentApp.ix.StartIndexing(ctx, root, excludes, reporter); err != nil {
				log.Printf("cli: re-indexing after %s: %v", event.Name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("cli: watcher error: %v", err)
		}
	}
}

// addWatchDirs registers root and every subdirectory with watcher, skipping
// the same implicit-exclude directories the crawler ignores. fsnotify
// watches are non-recursive, so every directory needs its own entry.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if watchIgnoreDirs[strings.ToLower(d.Name())] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
