package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smallnest/agentapis/agent"
	"github.com/smallnest/agentapis/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart TD")
	assert.Contains(t, out, "check_user_query")
	assert.Contains(t, out, "answer_from_document")

	path := filepath.Join(t.TempDir(), "graph.dot")
	out, err = execute(t, "graph", "--format", "dot", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph")

	graphOut = ""
	_, err = execute(t, "graph", "--format", "png")
	assert.Error(t, err)
	graphFormat = "mermaid"
}

func TestQueryMissingCollection(t *testing.T) {
	location := filepath.Join(t.TempDir(), "vector_store")
	_, err := execute(t, "query", "--location", location, "--log-level", "none", "sky color")
	assert.ErrorIs(t, err, rag.ErrCollectionNotFound)
	queryLocation = ""
}

func TestRenderResults(t *testing.T) {
	out := renderResults("sky", []rag.SearchResult{
		{Chunk: rag.Chunk{Content: "The sky is blue.", Source: "info.txt"}, Score: 0.9},
	})
	assert.Contains(t, out, "The sky is blue.")
	assert.Contains(t, out, "0.900")

	assert.Contains(t, renderResults("sky", nil), "No chunks match")
}

func TestMaxTurns(t *testing.T) {
	ctx := context.Background()
	assert.False(t, maxTurns(1).ShouldContinue(ctx, agent.State{}))

	c := maxTurns(2)
	state := agent.State{Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeAI, "first")}}
	assert.True(t, c.ShouldContinue(ctx, state))

	state.Messages = append(state.Messages, llms.TextParts(llms.ChatMessageTypeAI, "second"))
	assert.False(t, c.ShouldContinue(ctx, state))
}
