package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/sourcelens/coderag/internal/chunk"
)

const collectionName = "coderag-chunks"

// MemoryStore is the reference Store implementation: an in-memory
// chromem-go collection for embedding storage and brute-force cosine
// search, fronted by a side index that answers the store's per-file
// lifecycle operations without re-deriving them from vector search
// results (spec.md §4.5).
type MemoryStore struct {
	mu         sync.RWMutex
	collection *chromem.Collection
	chunks     map[string]chunk.Chunk  // chunk id -> chunk
	byFile     map[string]map[string]bool // file path -> set of chunk ids
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() (*MemoryStore, error) {
	db := chromem.NewDB()
	// Embeddings are always supplied by the caller (spec.md's ordering
	// guarantee: "embeddings are assigned before upsert"), so no
	// embedding function is needed here.
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("store: creating collection: %w", err)
	}
	return &MemoryStore{
		collection: collection,
		chunks:     make(map[string]chunk.Chunk),
		byFile:     make(map[string]map[string]bool),
	}, nil
}

// Upsert inserts or replaces chunks by ID.
func (s *MemoryStore) Upsert(ctx context.Context, chunks []chunk.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, exists := s.chunks[c.ID]; exists {
			_ = s.collection.Delete(ctx, nil, nil, c.ID)
		}

		doc := chromem.Document{
			ID:        c.ID,
			Content:   c.Content,
			Embedding: c.Embedding,
			Metadata:  map[string]string{"file_path": c.FilePath},
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("store: upserting chunk %s: %w", c.ID, err)
		}

		s.chunks[c.ID] = c
		if s.byFile[c.FilePath] == nil {
			s.byFile[c.FilePath] = make(map[string]bool)
		}
		s.byFile[c.FilePath][c.ID] = true
	}
	return nil
}

// Search returns the top-limit chunks by cosine similarity to query. Scoring
// goes through CosineSimilarity directly rather than chromem-go's own
// QueryEmbedding math, so the zero-norm-safe behavior a degraded indexing
// run's zero-vector fallback chunks depend on is guaranteed by this package,
// not merely assumed of the vendored library.
func (s *MemoryStore) Search(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}

	out := make([]SearchResult, 0, len(s.chunks))
	for _, c := range s.chunks {
		if !c.HasEmbedding() {
			continue
		}
		out = append(out, SearchResult{Chunk: c, Similarity: CosineSimilarity(query, c.Embedding)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Clear removes every stored chunk.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.chunks {
		_ = s.collection.Delete(ctx, nil, nil, id)
	}
	s.chunks = make(map[string]chunk.Chunk)
	s.byFile = make(map[string]map[string]bool)
	return nil
}

// AllFiles returns the distinct set of file paths with stored chunks.
func (s *MemoryStore) AllFiles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]string, 0, len(s.byFile))
	for path, ids := range s.byFile {
		if len(ids) > 0 {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// LastModified returns the last_modified of a chunk belonging to path, or
// nil if no chunk for path is stored.
func (s *MemoryStore) LastModified(ctx context.Context, path string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byFile[path]
	for id := range ids {
		c := s.chunks[id]
		t := c.LastModified
		return &t, nil
	}
	return nil, nil
}

// DeleteFileChunks removes every stored chunk belonging to path.
func (s *MemoryStore) DeleteFileChunks(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byFile[path]
	for id := range ids {
		_ = s.collection.Delete(ctx, nil, nil, id)
		delete(s.chunks, id)
	}
	delete(s.byFile, path)
	return nil
}
