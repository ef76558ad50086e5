package agent

import (
	"context"

	"github.com/smallnest/agentapis/graph"
	"github.com/smallnest/agentapis/log"
)

// Options configures the routing graph. Zero values keep the pass-through
// defaults: every step is graph.Identity, the continuation predicate stops
// after the first LLM step and the router picks the document answer.
type Options struct {
	LLM            graph.Handler[State]
	ShouldContinue graph.Handler[State]
	CheckUserQuery graph.Handler[State]
	Tool           graph.Handler[State]
	RAG            graph.Handler[State]

	Continuation Continuation
	Router       QueryRouter

	// Tracer receives spans for every run. It is not modified; when Logger is
	// set, spans are forwarded to it from an agent-owned tracer.
	Tracer *graph.Tracer
	Logger log.Logger
	// RecursionLimit caps the steps of one run. Zero means graph.DefaultRecursionLimit.
	RecursionLimit int
}

func (o *Options) continuation() Continuation {
	if o.Continuation == nil {
		return FixedContinuation(false)
	}
	return o.Continuation
}

func (o *Options) router() QueryRouter {
	if o.Router == nil {
		return FixedRouter(Intent{AnswerFromDocument: true})
	}
	return o.Router
}

// NewGraph wires the routing graph:
//
//	llm -> should_continue
//	should_continue -[no]-> END, -[yes]-> check_user_query
//	check_user_query -[answer_from_document]-> rag, -[tool_call]-> tool, -[general_query]-> llm
//	tool -> llm
//	rag -> llm
func NewGraph(opts Options) *graph.StateGraph[State] {
	continuation := opts.continuation()
	router := opts.router()

	g := graph.NewStateGraph[State]()
	g.AddHandler(NodeLLM, "Call the chat model", opts.LLM)
	g.AddHandler(NodeShouldContinue, "Decide whether to keep going", opts.ShouldContinue)
	g.AddHandler(NodeCheckUserQuery, "Classify the user query", opts.CheckUserQuery)
	g.AddHandler(NodeTool, "Run a tool", opts.Tool)
	g.AddHandler(NodeRAG, "Retrieve document context", opts.RAG)

	g.SetEntryPoint(NodeLLM)
	g.AddEdge(NodeLLM, NodeShouldContinue)
	g.AddConditionalEdges(NodeShouldContinue, func(ctx context.Context, state State) string {
		if continuation.ShouldContinue(ctx, state) {
			return RouteContinue
		}
		return RouteStop
	}, map[string]string{
		RouteStop:     graph.END,
		RouteContinue: NodeCheckUserQuery,
	})
	g.AddConditionalEdges(NodeCheckUserQuery, func(ctx context.Context, state State) string {
		return router.Classify(ctx, state).Route()
	}, map[string]string{
		RouteAnswerFromDocument: NodeRAG,
		RouteToolCall:           NodeTool,
		RouteGeneralQuery:       NodeLLM,
	})
	g.AddEdge(NodeTool, NodeLLM)
	g.AddEdge(NodeRAG, NodeLLM)

	return g
}

// Agent is the compiled routing graph.
type Agent struct {
	runnable       *graph.StateRunnable[State]
	recursionLimit int
}

// New builds and compiles the routing graph.
func New(opts Options) (*Agent, error) {
	runnable, err := NewGraph(opts).Compile()
	if err != nil {
		return nil, err
	}

	// The caller's tracer is never given extra hooks; logging runs on an
	// agent-owned tracer that forwards to it.
	tracer := opts.Tracer
	if opts.Logger != nil {
		own := graph.NewTracer()
		own.AddHook(LoggingHook(opts.Logger))
		if opts.Tracer != nil {
			own.AddHook(graph.TraceHookFunc(opts.Tracer.Forward))
		}
		tracer = own
	}
	if tracer != nil {
		runnable.SetTracer(tracer)
	}

	return &Agent{
		runnable:       runnable,
		recursionLimit: opts.RecursionLimit,
	}, nil
}

// Runnable returns the compiled graph.
func (a *Agent) Runnable() *graph.StateRunnable[State] {
	return a.runnable
}

// Graph returns an exporter for rendering the routing graph.
func (a *Agent) Graph() *graph.Exporter[State] {
	return a.runnable.GetGraph()
}

// Invoke runs the graph from state until it reaches END.
func (a *Agent) Invoke(ctx context.Context, state State) (State, error) {
	return a.runnable.InvokeWithConfig(ctx, state, &graph.Config{RecursionLimit: a.recursionLimit})
}

// Ask runs the graph for a single user message.
func (a *Agent) Ask(ctx context.Context, message string) (State, error) {
	return a.Invoke(ctx, NewState(message))
}
