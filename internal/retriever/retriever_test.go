package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/coderag/internal/chunk"
	"github.com/sourcelens/coderag/internal/store"
)

type fakeClient struct {
	healthy      bool
	embedding    []float32
	chatReply    string
	embedCalled  bool
	lastSystem   string
}

func (f *fakeClient) Embed(ctx context.Context, text string) []float32 {
	f.embedCalled = true
	return f.embedding
}
func (f *fakeClient) EmbedBatch(ctx context.Context, texts []string) [][]float32 { return nil }
func (f *fakeClient) Chat(ctx context.Context, userPrompt, systemPrompt string) string {
	f.lastSystem = systemPrompt
	return f.chatReply
}
func (f *fakeClient) IsHealthy(ctx context.Context) bool { return f.healthy }

type fakeStore struct {
	files   []string
	results []store.SearchResult
}

func (f *fakeStore) Upsert(ctx context.Context, chunks []chunk.Chunk) error { return nil }
func (f *fakeStore) Search(ctx context.Context, query []float32, limit int) ([]store.SearchResult, error) {
	return f.results, nil
}
func (f *fakeStore) Count(ctx context.Context) (int, error)      { return len(f.files), nil }
func (f *fakeStore) Clear(ctx context.Context) error             { return nil }
func (f *fakeStore) AllFiles(ctx context.Context) ([]string, error) { return f.files, nil }
func (f *fakeStore) LastModified(ctx context.Context, path string) (*time.Time, error) {
	return nil, nil
}
func (f *fakeStore) DeleteFileChunks(ctx context.Context, path string) error { return nil }

func TestAsk_EmptyIndexUsesDegradedModeA(t *testing.T) {
	client := &fakeClient{healthy: true, chatReply: "answer"}
	st := &fakeStore{}
	r := New(client, st)

	answer, err := r.Ask(context.Background(), "List files")

	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
	assert.False(t, client.embedCalled, "no embedding call for an empty index")
	assert.Contains(t, client.lastSystem, "has not been indexed")
}

func TestAsk_UnhealthyEmbedderUsesDegradedModeB(t *testing.T) {
	client := &fakeClient{healthy: false, chatReply: "answer"}
	st := &fakeStore{files: []string{"a.go", "b.go"}}
	r := New(client, st)

	_, err := r.Ask(context.Background(), "what does this do")

	require.NoError(t, err)
	assert.False(t, client.embedCalled)
	assert.Contains(t, client.lastSystem, "a.go")
	assert.Contains(t, client.lastSystem, "unavailable")
}

func TestAsk_ZeroVectorFallsBackToDegradedModeC(t *testing.T) {
	client := &fakeClient{healthy: true, embedding: []float32{0, 0, 0}, chatReply: "answer"}
	st := &fakeStore{files: []string{"a.go"}}
	r := New(client, st)

	_, err := r.Ask(context.Background(), "what does this do")

	require.NoError(t, err)
	assert.True(t, client.embedCalled)
	assert.Contains(t, client.lastSystem, "a.go")
	assert.Contains(t, client.lastSystem, "could not be embedded")
}

func TestAsk_NormalPathIncludesMeaningfulResults(t *testing.T) {
	client := &fakeClient{healthy: true, embedding: []float32{1, 0}, chatReply: "answer"}
	st := &fakeStore{
		files: []string{"a.cs"},
		results: []store.SearchResult{
			{
				Chunk: chunk.Chunk{
					FileName:  "a.cs",
					Content:   "public void Foo() {}",
					StartLine: 1,
					EndLine:   3,
				},
				Similarity: 0.732,
			},
		},
	}
	r := New(client, st)

	_, err := r.Ask(context.Background(), "what does Foo do")

	require.NoError(t, err)
	assert.Contains(t, client.lastSystem, "a.cs")
	assert.Contains(t, client.lastSystem, "public void Foo")
	assert.Contains(t, client.lastSystem, "0.732")
}

func TestAsk_SimilarityExactlyThresholdIsNotMeaningful(t *testing.T) {
	client := &fakeClient{healthy: true, embedding: []float32{1, 0}, chatReply: "answer"}
	st := &fakeStore{
		files: []string{"a.cs"},
		results: []store.SearchResult{
			{Chunk: chunk.Chunk{FileName: "a.cs", Content: "secret"}, Similarity: 0.1},
		},
	}
	r := New(client, st)

	_, err := r.Ask(context.Background(), "what does Foo do")

	require.NoError(t, err)
	assert.Contains(t, client.lastSystem, "No relevant code snippets")
	assert.NotContains(t, client.lastSystem, "secret")
}

func TestAsk_EmptyQuestionIsRejectedWithoutTouchingClientOrStore(t *testing.T) {
	client := &fakeClient{healthy: true, chatReply: "answer"}
	st := &fakeStore{files: []string{"a.go"}}
	r := New(client, st)

	for _, question := range []string{"", "   ", "\t\n"} {
		answer, err := r.Ask(context.Background(), question)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
		assert.Empty(t, answer)
	}
	assert.False(t, client.embedCalled, "empty question must not reach the embedding client")
	assert.Empty(t, client.lastSystem, "empty question must not reach the chat client")
}

func TestFileListing_TruncatesWithCountSuffix(t *testing.T) {
	files := []string{"a", "b", "c"}

	truncated := fileListing(files, 2)
	assert.Contains(t, truncated, "a, b")
	assert.Contains(t, truncated, "and 1 more")
	assert.NotContains(t, truncated, "c")

	full := fileListing(files, 10)
	assert.NotContains(t, full, "more")
	assert.Contains(t, full, "c")
}

func TestHasMeaningfulResults_StrictGreaterThan(t *testing.T) {
	assert.False(t, hasMeaningfulResults([]store.SearchResult{{Similarity: 0.1}}))
	assert.True(t, hasMeaningfulResults([]store.SearchResult{{Similarity: 0.1000001}}))
}
