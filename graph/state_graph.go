package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// StateGraph represents a generic state-based graph with compile-time type safety.
// The type parameter S represents the state type, which is typically a struct.
//
// Execution is strictly sequential: every node has exactly one way out, either a
// static edge or a conditional edge, and exactly one node runs per step.
//
// Example usage:
//
//	type MyState struct {
//	    Count int
//	}
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
//	g.AddEdge("increment", graph.END)
//	g.SetEntryPoint("increment")
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding node objects
	nodes map[string]TypedNode[S]

	// edges is a slice of Edge objects representing the static connections between nodes
	edges []Edge

	// conditionalEdges maps a "From" node to the edge that picks its successor at runtime
	conditionalEdges map[string]ConditionalEdge[S]

	// entryPoint is the name of the entry point node in the graph
	entryPoint string
}

// TypedNode represents a typed node in the graph.
type TypedNode[S any] struct {
	Name        string
	Description string
	Handler     Handler[S]
}

// NewStateGraph creates a new instance of StateGraph with type safety.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]TypedNode[S]),
		conditionalEdges: make(map[string]ConditionalEdge[S]),
	}
}

// AddNode adds a new node backed by a plain function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.AddHandler(name, description, HandlerFunc[S](fn))
}

// AddHandler adds a new node backed by a Handler. A nil handler is stored as Identity.
func (g *StateGraph[S]) AddHandler(name string, description string, h Handler[S]) {
	if h == nil {
		h = Identity[S]{}
	}
	g.nodes[name] = TypedNode[S]{
		Name:        name,
		Description: description,
		Handler:     h,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge whose condition returns the next node name.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.AddConditionalEdges(from, condition, nil)
}

// AddConditionalEdges adds a conditional edge whose condition returns a route key
// that is looked up in pathMap to find the next node.
//
// Example:
//
//	g.AddConditionalEdges("check", decide, map[string]string{
//	    "yes": "work",
//	    "no":  graph.END,
//	})
func (g *StateGraph[S]) AddConditionalEdges(from string, condition func(ctx context.Context, state S) string, pathMap map[string]string) {
	var pm map[string]string
	if pathMap != nil {
		pm = maps.Clone(pathMap)
	}
	g.conditionalEdges[from] = ConditionalEdge[S]{
		From:      from,
		Condition: condition,
		PathMap:   pm,
	}
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// EntryPoint returns the entry point node name.
func (g *StateGraph[S]) EntryPoint() string {
	return g.entryPoint
}

// NodeNames returns the node names in lexical order.
func (g *StateGraph[S]) NodeNames() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Node returns the node registered under name.
func (g *StateGraph[S]) Node(name string) (TypedNode[S], bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Validate checks the wiring of the graph without compiling it.
func (g *StateGraph[S]) Validate() error {
	if g.entryPoint == "" {
		return ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	outgoing := make(map[string]int, len(g.nodes))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if !g.isTarget(e.To) {
			return fmt.Errorf("%w: edge target %s (from %s)", ErrNodeNotFound, e.To, e.From)
		}
		outgoing[e.From]++
	}
	for from, ce := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: conditional edge source %s", ErrNodeNotFound, from)
		}
		if ce.Condition == nil {
			return fmt.Errorf("conditional edge from %s has no condition", from)
		}
		for _, key := range slices.Sorted(maps.Keys(ce.PathMap)) {
			if to := ce.PathMap[key]; !g.isTarget(to) {
				return fmt.Errorf("%w: route %q target %s (from %s)", ErrNodeNotFound, key, to, from)
			}
		}
		outgoing[from]++
	}

	for _, name := range g.NodeNames() {
		switch n := outgoing[name]; {
		case n == 0:
			return fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
		case n > 1:
			return fmt.Errorf("%w: %s", ErrAmbiguousEdge, name)
		}
	}

	if !g.reachesEnd() {
		return fmt.Errorf("%w: entry %s", ErrNoTerminalPath, g.entryPoint)
	}
	return nil
}

func (g *StateGraph[S]) isTarget(name string) bool {
	if name == END {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

// successors lists every node a step may move to. A conditional edge without
// a path map may go anywhere, including END.
func (g *StateGraph[S]) successors(name string) []string {
	var out []string
	for _, e := range g.edges {
		if e.From == name {
			out = append(out, e.To)
		}
	}
	if ce, ok := g.conditionalEdges[name]; ok {
		if ce.PathMap == nil {
			return append(out, END)
		}
		for _, key := range slices.Sorted(maps.Keys(ce.PathMap)) {
			out = append(out, ce.PathMap[key])
		}
	}
	return out
}

func (g *StateGraph[S]) reachesEnd() bool {
	visited := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, next := range g.successors(name) {
			if next == END {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// StateRunnable represents a compiled state graph that can be invoked with type safety.
type StateRunnable[S any] struct {
	graph  *StateGraph[S]
	tracer *Tracer
}

// Compile validates the state graph and returns a StateRunnable instance.
// Later changes to g do not affect the returned runnable.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	frozen := &StateGraph[S]{
		nodes:            maps.Clone(g.nodes),
		edges:            slices.Clone(g.edges),
		conditionalEdges: maps.Clone(g.conditionalEdges),
		entryPoint:       g.entryPoint,
	}
	return &StateRunnable[S]{graph: frozen}, nil
}

// SetTracer sets a tracer for observability.
func (r *StateRunnable[S]) SetTracer(tracer *Tracer) {
	r.tracer = tracer
}

// GetTracer returns the current tracer.
func (r *StateRunnable[S]) GetTracer() *Tracer {
	return r.tracer
}

// WithTracer returns a new StateRunnable with the given tracer.
func (r *StateRunnable[S]) WithTracer(tracer *Tracer) *StateRunnable[S] {
	return &StateRunnable[S]{
		graph:  r.graph,
		tracer: tracer,
	}
}

// GetGraph returns an exporter for the compiled graph.
func (r *StateRunnable[S]) GetGraph() *Exporter[S] {
	return NewExporter(r.graph)
}

// Invoke executes the compiled state graph with the given input state.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the compiled state graph with the given input state and config.
// It returns the state reached at END, or the zero state and an error.
func (r *StateRunnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	var zero S
	if config != nil {
		ctx = WithConfig(ctx, config)
	}
	limit := config.recursionLimit()

	var graphSpan *TraceSpan
	if r.tracer != nil {
		graphSpan = r.tracer.StartSpan(ctx, TraceEventGraphStart, "")
		graphSpan.State = initialState
		tagSpan(graphSpan, config)
		ctx = ContextWithSpan(ctx, graphSpan)
	}
	fail := func(state S, err error) (S, error) {
		if graphSpan != nil {
			r.tracer.EndSpan(ctx, graphSpan, state, err)
		}
		return zero, err
	}

	state := initialState
	current := r.graph.entryPoint
	for steps := 0; current != END; steps++ {
		if err := ctx.Err(); err != nil {
			return fail(state, err)
		}
		if steps >= limit {
			return fail(state, fmt.Errorf("%w: %d steps without reaching %s", ErrRecursionLimit, limit, END))
		}

		next, err := r.step(ctx, current, &state)
		if err != nil {
			return fail(state, err)
		}
		if r.tracer != nil {
			r.tracer.TraceEdgeTraversal(ctx, current, next)
		}
		current = next
	}

	if graphSpan != nil {
		r.tracer.EndSpan(ctx, graphSpan, state, nil)
	}
	return state, nil
}

// step runs one node and resolves its successor.
func (r *StateRunnable[S]) step(ctx context.Context, name string, state *S) (string, error) {
	node, ok := r.graph.nodes[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}

	nodeCtx := ctx
	var nodeSpan *TraceSpan
	if r.tracer != nil {
		nodeSpan = r.tracer.StartSpan(ctx, TraceEventNodeStart, name)
		nodeSpan.State = *state
		nodeCtx = ContextWithSpan(ctx, nodeSpan)
	}

	res, err := node.Handler.Handle(nodeCtx, *state)
	if nodeSpan != nil {
		r.tracer.EndSpan(nodeCtx, nodeSpan, res, err)
	}
	if err != nil {
		return "", fmt.Errorf("error in node %s: %w", name, err)
	}
	*state = res

	return r.next(ctx, name, res)
}

// next determines the node that follows name.
func (r *StateRunnable[S]) next(ctx context.Context, name string, state S) (string, error) {
	if ce, ok := r.graph.conditionalEdges[name]; ok {
		target, err := ce.resolve(ce.Condition(ctx, state))
		if err != nil {
			return "", err
		}
		if !r.graph.isTarget(target) {
			return "", fmt.Errorf("%w: %s (from %s)", ErrNodeNotFound, target, name)
		}
		return target, nil
	}
	for _, e := range r.graph.edges {
		if e.From == name {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
}

func tagSpan(span *TraceSpan, config *Config) {
	if config == nil {
		return
	}
	if len(config.Tags) > 0 {
		span.Metadata["tags"] = slices.Clone(config.Tags)
	}
	maps.Copy(span.Metadata, config.Metadata)
}
