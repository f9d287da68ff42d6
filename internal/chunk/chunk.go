// Package chunk defines the unit of retrieval (Chunk) and the strategies
// that turn raw file bytes into a sequence of chunks.
package chunk

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is a contiguous slice of one source file: the unit of retrieval.
type Chunk struct {
	ID           string    `json:"id"`
	FilePath     string    `json:"file_path"`
	FileName     string    `json:"file_name"`
	Content      string    `json:"content"`
	StartLine    int       `json:"start_line"`
	EndLine      int       `json:"end_line"`
	LastModified time.Time `json:"last_modified"`
	Embedding    []float32 `json:"embedding,omitempty"`
	Language     string    `json:"language"`
	FunctionName string    `json:"function_name,omitempty"`
	ClassName    string    `json:"class_name,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
}

// NewID generates a stable-for-the-process-lifetime, globally unique chunk
// identifier. Chunk identity is random per spec.md's "Open question — chunk
// identity": dedup across re-scans relies on the indexer deleting a file's
// old chunks before re-inserting, not on ID collision.
func NewID() string {
	return uuid.NewString()
}

// HasEmbedding reports whether the chunk has been assigned a vector yet.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
