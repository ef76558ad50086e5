package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type traceState struct {
	Result string
}

func buildTracedGraph(t *testing.T, failSecond bool) *StateRunnable[traceState] {
	t.Helper()

	g := NewStateGraph[traceState]()
	g.AddNode("node1", "First node", func(_ context.Context, _ traceState) (traceState, error) {
		return traceState{Result: "result1"}, nil
	})
	g.AddNode("node2", "Second node", func(_ context.Context, _ traceState) (traceState, error) {
		if failSecond {
			return traceState{}, errors.New("node2 failed")
		}
		return traceState{Result: "result2"}, nil
	})
	g.AddEdge("node1", "node2")
	g.AddEdge("node2", END)
	g.SetEntryPoint("node1")

	runnable, err := g.Compile()
	require.NoError(t, err)
	return runnable
}

func TestStateGraphWithTracer(t *testing.T) {
	runnable := buildTracedGraph(t, false)
	tracer := NewTracer()

	runnable.SetTracer(tracer)
	assert.Same(t, tracer, runnable.GetTracer())

	other := NewTracer()
	withOther := runnable.WithTracer(other)
	assert.Same(t, other, withOther.GetTracer())
	assert.Same(t, tracer, runnable.GetTracer())

	var events []TraceEvent
	tracer.AddHook(TraceHookFunc(func(_ context.Context, span *TraceSpan) {
		events = append(events, span.Event)
	}))

	result, err := runnable.InvokeWithConfig(context.Background(), traceState{}, &Config{
		Tags:     []string{"test"},
		Metadata: map[string]any{"run": "one"},
	})
	require.NoError(t, err)
	assert.Equal(t, "result2", result.Result)

	assert.Equal(t, []TraceEvent{
		TraceEventGraphStart,
		TraceEventNodeStart, TraceEventNodeEnd, TraceEventEdgeTraversal,
		TraceEventNodeStart, TraceEventNodeEnd, TraceEventEdgeTraversal,
		TraceEventGraphEnd,
	}, events)

	spans := tracer.Spans()
	require.Len(t, spans, 5)
	assert.Len(t, tracer.GetSpans(), 5)

	root := spans[0]
	assert.Empty(t, root.ParentID)
	assert.Equal(t, []string{"test"}, root.Metadata["tags"])
	assert.Equal(t, "one", root.Metadata["run"])
	for _, span := range spans {
		_, err := uuid.Parse(span.ID)
		assert.NoError(t, err)
		if span != root {
			assert.Equal(t, root.ID, span.ParentID)
		}
	}

	edge := spans[2]
	assert.Equal(t, TraceEventEdgeTraversal, edge.Event)
	assert.Equal(t, "node1", edge.FromNode)
	assert.Equal(t, "node2", edge.ToNode)

	tracer.Clear()
	assert.Empty(t, tracer.Spans())
	assert.Empty(t, other.Spans())
}

func TestTracerRecordsNodeError(t *testing.T) {
	runnable := buildTracedGraph(t, true)
	tracer := NewTracer()
	runnable.SetTracer(tracer)

	_, err := runnable.Invoke(context.Background(), traceState{})
	require.Error(t, err)

	var nodeErr, graphEnd *TraceSpan
	for _, span := range tracer.Spans() {
		switch span.Event {
		case TraceEventNodeError:
			nodeErr = span
		case TraceEventGraphEnd:
			graphEnd = span
		}
	}
	require.NotNil(t, nodeErr)
	assert.Equal(t, "node2", nodeErr.NodeName)
	assert.EqualError(t, nodeErr.Error, "node2 failed")

	require.NotNil(t, graphEnd)
	assert.ErrorContains(t, graphEnd.Error, "error in node node2")
	assert.GreaterOrEqual(t, graphEnd.Duration.Nanoseconds(), int64(0))
}

func TestSpanContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, SpanFromContext(ctx))

	span := &TraceSpan{ID: "abc"}
	assert.Same(t, span, SpanFromContext(ContextWithSpan(ctx, span)))
}

func TestTracerForward(t *testing.T) {
	ctx := context.Background()
	source := NewTracer()
	target := NewTracer()
	var events []TraceEvent
	target.AddHook(TraceHookFunc(func(_ context.Context, span *TraceSpan) {
		events = append(events, span.Event)
	}))
	source.AddHook(TraceHookFunc(target.Forward))

	span := source.StartSpan(ctx, TraceEventNodeStart, "n")
	source.EndSpan(ctx, span, nil, nil)

	require.Len(t, target.Spans(), 1)
	assert.Same(t, span, target.Spans()[0])
	assert.Equal(t, []TraceEvent{TraceEventNodeStart, TraceEventNodeEnd}, events)
}
