package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/coderag/internal/config"
	"github.com/sourcelens/coderag/internal/indexer"
	"github.com/sourcelens/coderag/internal/retriever"
	"github.com/sourcelens/coderag/internal/store"
)

// fakeClient is a network-free stand-in for llmclient.Client, shared by the
// command tests in this package.
type fakeClient struct {
	healthy bool
	chat    string
}

func (f *fakeClient) Embed(ctx context.Context, text string) []float32 { return []float32{1, 0} }
func (f *fakeClient) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out
}
func (f *fakeClient) Chat(ctx context.Context, userPrompt, systemPrompt string) string { return f.chat }
func (f *fakeClient) IsHealthy(ctx context.Context) bool                              { return f.healthy }

func newTestApp(t *testing.T) *app {
	t.Helper()
	st, err := store.NewMemoryStore()
	require.NoError(t, err)
	client := &fakeClient{healthy: true, chat: "answer"}
	cfg := config.Default()
	return &app{
		cfg:       cfg,
		client:    client,
		st:        st,
		ix:        indexer.New(client, st, cfg.Indexing),
		retriever: retriever.New(client, st),
	}
}

func TestRunStatus_ReportsIdleStateBeforeAnyRun(t *testing.T) {
	currentApp = newTestApp(t)
	defer func() { currentApp = nil }()

	var out bytes.Buffer
	statusCmd.SetOut(&out)
	statusJSON = false

	require.NoError(t, runStatus(statusCmd, nil))
	assert.Contains(t, out.String(), "indexing: false")
	assert.Contains(t, out.String(), "processed: 0/0")
}

func TestRunStatus_JSONFlagEmitsJSON(t *testing.T) {
	currentApp = newTestApp(t)
	defer func() { currentApp = nil }()

	var out bytes.Buffer
	statusCmd.SetOut(&out)
	statusJSON = true
	defer func() { statusJSON = false }()

	require.NoError(t, runStatus(statusCmd, nil))
	assert.Contains(t, out.String(), `"is_indexing"`)
}

func TestRunCancel_IsNoOpOnIdleIndexer(t *testing.T) {
	currentApp = newTestApp(t)
	defer func() { currentApp = nil }()

	var out bytes.Buffer
	cancelCmd.SetOut(&out)

	assert.NotPanics(t, func() { require.NoError(t, runCancel(cancelCmd, nil)) })
	assert.Contains(t, out.String(), "cancellation requested")
}

func TestRunAsk_OneShotQuestionPrintsAnswer(t *testing.T) {
	currentApp = newTestApp(t)
	defer func() { currentApp = nil }()

	var out bytes.Buffer
	askCmd.SetOut(&out)
	askCmd.SetContext(context.Background())

	require.NoError(t, runAsk(askCmd, []string{"what", "does", "this", "do"}))
	assert.Contains(t, out.String(), "answer")
}

func TestRunAsk_EmptyPositionalQuestionIsRejected(t *testing.T) {
	currentApp = newTestApp(t)
	defer func() { currentApp = nil }()

	var out bytes.Buffer
	askCmd.SetOut(&out)
	askCmd.SetContext(context.Background())

	err := runAsk(askCmd, []string{"   "})
	assert.ErrorIs(t, err, retriever.ErrEmptyQuestion)
	assert.Empty(t, out.String(), "no answer should be printed for a rejected question")
}

func TestRunIndex_IndexesTempDirectoryAndSkipsOnRerun(t *testing.T) {
	currentApp = newTestApp(t)
	defer func() { currentApp = nil }()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0o644))

	indexQuiet = true
	indexWatch = false
	indexExcludes = nil
	defer func() { indexQuiet = false }()

	var out bytes.Buffer
	indexCmd.SetOut(&out)

	require.NoError(t, runIndex(indexCmd, []string{dir}))

	count, err := currentApp.st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	status := currentApp.ix.Status()
	assert.False(t, status.IsIndexing)
	assert.Equal(t, 1, status.ProcessedFiles)

	require.NoError(t, runIndex(indexCmd, []string{dir}))

	count, err = currentApp.st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rerun on an unchanged tree adds no chunks")
}
