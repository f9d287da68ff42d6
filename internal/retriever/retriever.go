// Package retriever implements ask(question): the embed → search →
// assemble → chat orchestration, including the degraded-mode branches for
// an empty index, an unhealthy embedder, or a zero-vector fallback
// (spec.md §4.7).
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcelens/coderag/internal/llmclient"
	"github.com/sourcelens/coderag/internal/store"
)

// ErrEmptyQuestion is returned by Ask for a blank or whitespace-only
// question: bad input rejected at the boundary, per spec.md §7 ("empty
// question ... reject at boundary with a typed failure; do not mutate
// state").
var ErrEmptyQuestion = errors.New("retriever: question must not be empty")

// Fixed defaults that together define the degraded-mode policy (spec.md
// §4.7): "implementations may expose them as config but must default to
// these."
const (
	similarityThreshold  = 0.1
	topK                 = 5
	degradedFileListCap  = 50
	normalFileListCap    = 100
)

// Retriever answers questions about an indexed codebase.
type Retriever struct {
	client llmclient.Client
	store  store.Store
}

// New builds a Retriever over the given embedding/chat client and vector
// store.
func New(client llmclient.Client, st store.Store) *Retriever {
	return &Retriever{client: client, store: st}
}

// Ask answers question, branching through the degraded-mode policy before
// falling through to the normal embed/search/assemble/chat path. A blank or
// whitespace-only question is rejected with ErrEmptyQuestion before any
// store or client call is made.
func (r *Retriever) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	files, err := r.store.AllFiles(ctx)
	if err != nil {
		files = nil
	}
	healthy := r.client.IsHealthy(ctx)

	if len(files) == 0 {
		return r.client.Chat(ctx, question, emptyIndexPrompt()), nil
	}
	if !healthy {
		return r.client.Chat(ctx, question, degradedPrompt(files, "the embedding service is currently unavailable")), nil
	}

	qVec := r.client.Embed(ctx, question)
	if isZeroVector(qVec) {
		return r.client.Chat(ctx, question, degradedPrompt(files, "the question could not be embedded")), nil
	}

	results, err := r.store.Search(ctx, qVec, topK)
	if err != nil {
		results = nil
	}

	systemPrompt := normalPrompt(files, results)
	return r.client.Chat(ctx, question, systemPrompt), nil
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func emptyIndexPrompt() string {
	return "The codebase has not been indexed yet, so no files are available. " +
		"Let the user know the index is empty and suggest running an index first."
}

func degradedPrompt(files []string, caveat string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The codebase has %d file(s). ", len(files))
	b.WriteString(fileListing(files, degradedFileListCap))
	fmt.Fprintf(&b, " Note: %s, so file contents are unavailable for this answer.", caveat)
	return b.String()
}

func normalPrompt(files []string, results []store.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The codebase has %d file(s). ", len(files))
	b.WriteString(fileListing(files, normalFileListCap))

	meaningful := hasMeaningfulResults(results)
	if !meaningful {
		b.WriteString(" No relevant code snippets were found for this question.")
		return b.String()
	}

	b.WriteString("\n\nRelevant snippets:\n")
	for _, res := range results {
		if res.Similarity <= similarityThreshold {
			continue
		}
		c := res.Chunk
		fmt.Fprintf(&b, "\n--- %s (lines %d-%d, similarity %.3f) ---\n%s\n",
			c.FileName, c.StartLine, c.EndLine, res.Similarity, c.Content)
	}
	return b.String()
}

// hasMeaningfulResults applies the strict similarity boundary: a result at
// exactly the threshold does not count (spec.md §8).
func hasMeaningfulResults(results []store.SearchResult) bool {
	for _, r := range results {
		if r.Similarity > similarityThreshold {
			return true
		}
	}
	return false
}

func fileListing(files []string, limit int) string {
	n := len(files)
	shown := files
	suffix := ""
	if n > limit {
		shown = files[:limit]
		suffix = fmt.Sprintf(" and %d more", n-limit)
	}
	return fmt.Sprintf("Files: %s%s.", strings.Join(shown, ", "), suffix)
}
