// Package store holds indexed chunks and answers nearest-neighbor queries
// over their embeddings (spec.md §4.5).
package store

import (
	"context"
	"math"
	"time"

	"github.com/sourcelens/coderag/internal/chunk"
)

// SearchResult pairs a stored chunk with its similarity to a query vector.
type SearchResult struct {
	Chunk      chunk.Chunk
	Similarity float32
}

// Store is the vector store contract shared by the indexer (writer) and the
// retriever (reader). Implementations must give upserts exclusive-write
// discipline: readers never observe a torn write (spec.md §4.5, §5).
type Store interface {
	// Upsert inserts or replaces chunks by ID.
	Upsert(ctx context.Context, chunks []chunk.Chunk) error
	// Search returns the top-`limit` chunks by cosine similarity to query,
	// ordered descending, considering only chunks with an embedding.
	Search(ctx context.Context, query []float32, limit int) ([]SearchResult, error)
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
	// Clear removes every stored chunk.
	Clear(ctx context.Context) error
	// AllFiles returns the distinct set of file paths with stored chunks.
	AllFiles(ctx context.Context) ([]string, error)
	// LastModified returns the last_modified of a chunk belonging to path,
	// or nil if no chunk for path is stored.
	LastModified(ctx context.Context, path string) (*time.Time, error)
	// DeleteFileChunks removes every stored chunk belonging to path.
	DeleteFileChunks(ctx context.Context, path string) error
}

// CosineSimilarity computes dot(a,b) / (||a||·||b||), returning 0 rather
// than dividing by zero when either vector has zero norm (spec.md §4.5).
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
