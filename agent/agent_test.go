package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smallnest/agentapis/graph"
	"github.com/smallnest/agentapis/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// visitedNodes returns the node names in the order the tracer saw them start.
func visitedNodes(tracer *graph.Tracer) []string {
	var out []string
	for _, span := range tracer.Spans() {
		if span.NodeName != "" && (span.Event == graph.TraceEventNodeEnd || span.Event == graph.TraceEventNodeError) {
			out = append(out, span.NodeName)
		}
	}
	return out
}

// continueTimes returns true the first n times it is asked.
func continueTimes(n int) ContinuationFunc {
	return func(context.Context, State) bool {
		n--
		return n >= 0
	}
}

func TestDefaultGraphStopsAfterFirstStep(t *testing.T) {
	tracer := graph.NewTracer()
	a, err := New(Options{Tracer: tracer})
	require.NoError(t, err)

	in := NewState("hello")
	out, err := a.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, []string{NodeLLM, NodeShouldContinue}, visitedNodes(tracer))
}

func TestRouting(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
		want   []string
	}{
		{
			name:   "document answer",
			intent: Intent{AnswerFromDocument: true},
			want:   []string{NodeLLM, NodeShouldContinue, NodeCheckUserQuery, NodeRAG, NodeLLM, NodeShouldContinue},
		},
		{
			name:   "both intents prefer document",
			intent: Intent{AnswerFromDocument: true, ToolCall: true},
			want:   []string{NodeLLM, NodeShouldContinue, NodeCheckUserQuery, NodeRAG, NodeLLM, NodeShouldContinue},
		},
		{
			name:   "tool call",
			intent: Intent{ToolCall: true},
			want:   []string{NodeLLM, NodeShouldContinue, NodeCheckUserQuery, NodeTool, NodeLLM, NodeShouldContinue},
		},
		{
			name:   "general query",
			intent: Intent{},
			want:   []string{NodeLLM, NodeShouldContinue, NodeCheckUserQuery, NodeLLM, NodeShouldContinue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer := graph.NewTracer()
			a, err := New(Options{
				Continuation: continueTimes(1),
				Router:       FixedRouter(tt.intent),
				Tracer:       tracer,
			})
			require.NoError(t, err)

			_, err = a.Ask(context.Background(), "question")
			require.NoError(t, err)
			assert.Equal(t, tt.want, visitedNodes(tracer))
		})
	}
}

func TestRunawayLoopHitsRecursionLimit(t *testing.T) {
	a, err := New(Options{
		Continuation:   FixedContinuation(true),
		Router:         FixedRouter(Intent{ToolCall: true}),
		RecursionLimit: 10,
	})
	require.NoError(t, err)

	out, err := a.Ask(context.Background(), "loop forever")
	assert.ErrorIs(t, err, graph.ErrRecursionLimit)
	assert.Equal(t, State{}, out)
}

func TestInjectedHandlers(t *testing.T) {
	var calls []string
	record := func(name string) graph.Handler[State] {
		return graph.HandlerFunc[State](func(_ context.Context, s State) (State, error) {
			calls = append(calls, name)
			s.Response += name + ";"
			return s, nil
		})
	}

	a, err := New(Options{
		LLM:          record(NodeLLM),
		RAG:          record(NodeRAG),
		Tool:         record(NodeTool),
		Continuation: continueTimes(1),
	})
	require.NoError(t, err)

	out, err := a.Ask(context.Background(), "what does the document say")
	require.NoError(t, err)
	assert.Equal(t, []string{NodeLLM, NodeRAG, NodeLLM}, calls)
	assert.Equal(t, "llm;rag;llm;", out.Response)
}

func TestHandlerErrorStopsRun(t *testing.T) {
	boom := errors.New("backend unreachable")
	a, err := New(Options{
		LLM: graph.HandlerFunc[State](func(context.Context, State) (State, error) {
			return State{}, boom
		}),
	})
	require.NoError(t, err)

	_, err = a.Ask(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), NodeLLM)
}

func TestGraphExport(t *testing.T) {
	a, err := New(Options{})
	require.NoError(t, err)

	mermaid := a.Graph().DrawMermaid()
	for _, want := range []string{
		NodeLLM, NodeShouldContinue, NodeCheckUserQuery, NodeTool, NodeRAG,
		RouteAnswerFromDocument, RouteToolCall, RouteGeneralQuery, RouteContinue, RouteStop,
	} {
		assert.Contains(t, mermaid, want)
	}

	assert.Contains(t, a.Graph().DrawDOT(), "digraph")
}

func TestNewGraphNodes(t *testing.T) {
	g := NewGraph(Options{})
	assert.Equal(t, NodeLLM, g.EntryPoint())
	assert.ElementsMatch(t,
		[]string{NodeLLM, NodeShouldContinue, NodeCheckUserQuery, NodeTool, NodeRAG},
		g.NodeNames())

	for _, name := range g.NodeNames() {
		n, ok := g.Node(name)
		require.True(t, ok)
		assert.True(t, graph.IsIdentity(n.Handler), name)
	}
	require.NoError(t, g.Validate())
}

func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewCustomLogger(&buf, log.LogLevelDebug)

	a, err := New(Options{Logger: logger})
	require.NoError(t, err)

	_, err = a.Ask(context.Background(), "hi")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "enter llm")
	assert.Contains(t, out, "llm -> should_continue")
	assert.Contains(t, out, "should_continue -> END")
}

func TestLoggerDoesNotAddHooksToSharedTracer(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewCustomLogger(&buf, log.LogLevelDebug)
	tracer := graph.NewTracer()

	first, err := New(Options{Tracer: tracer, Logger: logger})
	require.NoError(t, err)
	_, err = New(Options{Tracer: tracer, Logger: logger})
	require.NoError(t, err)

	_, err = first.Ask(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(buf.String(), "enter llm"))
	assert.Equal(t, []string{NodeLLM, NodeShouldContinue}, visitedNodes(tracer))
}
