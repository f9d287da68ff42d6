// Package indexer coordinates a single codebase indexing run: scanning
// files, skipping unchanged ones, chunking, batch-embedding, and writing
// to the vector store (spec.md §4.6).
package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sourcelens/coderag/internal/chunk"
	"github.com/sourcelens/coderag/internal/config"
	"github.com/sourcelens/coderag/internal/crawl"
	"github.com/sourcelens/coderag/internal/llmclient"
	"github.com/sourcelens/coderag/internal/project"
	"github.com/sourcelens/coderag/internal/store"
)

// Indexer is the single long-running coordinator: at most one job runs at
// a time (spec.md §4.6).
type Indexer struct {
	client llmclient.Client
	store  store.Store
	cfg    config.IndexingConfig

	status statusBox

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New builds an Indexer against the given embedding/chat client, vector
// store, and indexing configuration.
func New(client llmclient.Client, st store.Store, cfg config.IndexingConfig) *Indexer {
	return &Indexer{client: client, store: st, cfg: cfg}
}

// Status returns a best-effort snapshot of the current or most recently
// completed job.
func (ix *Indexer) Status() IndexingStatus {
	return ix.status.Snapshot()
}

// Cancel requests cancellation of the running job. Idempotent; a no-op
// when idle (spec.md §4.6).
func (ix *Indexer) Cancel() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.cancel != nil {
		ix.cancel()
	}
}

// StartIndexing runs one indexing job to completion (or cancellation). A
// second call while a job is already running is a logged no-op (spec.md
// §4.6). The job never returns an error to signal failure to a caller
// polling Status; the returned error is only for callers that want to
// synchronously detect a fatal (bad-path) failure.
func (ix *Indexer) StartIndexing(ctx context.Context, rootPath string, excludePatterns []string, reporter ProgressReporter) error {
	rootPath = strings.Trim(strings.TrimSpace(rootPath), `"'`)
	if reporter == nil {
		reporter = NoOpProgressReporter{}
	}

	ix.mu.Lock()
	if ix.running {
		ix.mu.Unlock()
		log.Printf("indexer: start requested while a job is already running; ignoring")
		return nil
	}
	ix.running = true
	runCtx, cancel := context.WithCancel(ctx)
	ix.cancel = cancel
	ix.mu.Unlock()

	defer func() {
		ix.mu.Lock()
		ix.running = false
		ix.cancel = nil
		ix.mu.Unlock()
	}()

	ix.status.Set(IndexingStatus{IsIndexing: true, Message: "Scanning files…"})

	if _, err := os.Stat(rootPath); err != nil {
		msg := fmt.Sprintf("indexing failed: root path does not exist: %s", rootPath)
		ix.status.Set(IndexingStatus{IsIndexing: false, Message: msg})
		reporter.Finished(ix.status.Snapshot())
		return fmt.Errorf("indexer: %s", msg)
	}

	archetype := project.Detect(rootPath)
	crawler := crawl.ForArchetype(archetype)

	files, err := crawler.Scan(rootPath, excludePatterns)
	if err != nil {
		msg := fmt.Sprintf("indexing failed: could not scan %s: %v", rootPath, err)
		ix.status.Set(IndexingStatus{IsIndexing: false, Message: msg})
		reporter.Finished(ix.status.Snapshot())
		return fmt.Errorf("indexer: scan: %w", err)
	}

	ix.status.Update(func(s *IndexingStatus) { s.TotalFiles = len(files) })
	reporter.Start(len(files))

	collected := ix.scanAndChunk(runCtx, crawler, files, reporter)

	cancelled := runCtx.Err() != nil
	if !cancelled {
		ix.embedAndUpsert(runCtx, collected, reporter)
		cancelled = runCtx.Err() != nil
	}

	ix.finalize(cancelled, len(files))
	reporter.Finished(ix.status.Snapshot())
	return nil
}

// scanAndChunk processes every discovered file with bounded parallelism,
// stopping the scheduling of new tasks as soon as cancellation is observed
// while letting in-flight tasks finish (spec.md §4.6 cancellation policy).
func (ix *Indexer) scanAndChunk(ctx context.Context, crawler crawl.Crawler, files []string, reporter ProgressReporter) []chunk.Chunk {
	parallelism := ix.cfg.MaxParallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	var collectedMu sync.Mutex
	var collected []chunk.Chunk

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			ix.status.Update(func(s *IndexingStatus) { s.CurrentFile = path })
			chunks := ix.processFile(gctx, crawler, path)
			if len(chunks) > 0 {
				collectedMu.Lock()
				collected = append(collected, chunks...)
				collectedMu.Unlock()
			}
			ix.status.Update(func(s *IndexingStatus) { s.ProcessedFiles++ })
			reporter.FileProcessed(path)
			return nil
		})
	}
	_ = g.Wait()

	return collected
}

// processFile applies the per-file incremental-skip and delete-before-
// reinsert rules, then chunks the file if it needs (re)indexing.
func (ix *Indexer) processFile(ctx context.Context, crawler crawl.Crawler, path string) []chunk.Chunk {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("indexer: stat %s: %v", path, err)
		return nil
	}
	fileMtime := info.ModTime().UTC()

	existing, err := ix.store.LastModified(ctx, path)
	if err != nil {
		log.Printf("indexer: last_modified lookup for %s: %v", path, err)
	}
	if existing != nil && !existing.UTC().Before(fileMtime) {
		return nil
	}
	if existing != nil {
		if err := ix.store.DeleteFileChunks(ctx, path); err != nil {
			log.Printf("indexer: deleting stale chunks for %s: %v", path, err)
		}
	}

	chunks := crawler.Process(path)
	for i := range chunks {
		chunks[i].LastModified = fileMtime
	}
	return chunks
}

// embedAndUpsert batches collected chunks, embeds each batch, and upserts
// it, stopping at the next batch boundary on cancellation (spec.md §4.6,
// §5: "embedding is the memory-expensive step and runs serially in
// batches").
func (ix *Indexer) embedAndUpsert(ctx context.Context, chunks []chunk.Chunk, reporter ProgressReporter) {
	batchSize := ix.cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	for i := 0; i < len(chunks); i += batchSize {
		if ctx.Err() != nil {
			return
		}

		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		vectors := ix.client.EmbedBatch(ctx, texts)
		for j := range batch {
			if j < len(vectors) {
				batch[j].Embedding = vectors[j]
			}
		}

		if err := ix.store.Upsert(ctx, batch); err != nil {
			log.Printf("indexer: upserting batch [%d:%d]: %v", i, end, err)
			continue
		}
		reporter.BatchEmbedded(len(batch))
	}
}

func (ix *Indexer) finalize(cancelled bool, totalFiles int) {
	ix.status.Update(func(s *IndexingStatus) {
		s.IsIndexing = false
		s.Cancelled = cancelled
		s.CurrentFile = ""
		if cancelled {
			s.Message = fmt.Sprintf("Indexing cancelled after processing %d of %d files", s.ProcessedFiles, totalFiles)
		} else {
			s.Message = fmt.Sprintf("Indexing complete: processed %d of %d files", s.ProcessedFiles, totalFiles)
		}
	})
}
