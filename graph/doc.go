// Package graph provides the typed graph construction and execution engine used by agentapis.
//
// A StateGraph[S] is a directed graph of named nodes. Each node is a Handler[S] that
// receives the current state and returns the next one. Edges decide which node runs
// next; the run ends when the END marker is reached.
//
// # Core Concepts
//
// ## Nodes and Handlers
// Nodes wrap a Handler[S]. Plain functions are adapted with HandlerFunc, and Identity
// returns the state unchanged, which makes it the natural placeholder for a node whose
// behaviour is supplied later.
//
// ## Edges
// Static edges always move to the same node. Conditional edges call a function that
// returns a route key; the key is looked up in a path map to find the successor.
// Every node has exactly one way out, so execution is strictly sequential.
//
// ## Compilation
// Compile validates the wiring (entry point, node existence, one outgoing transition per
// node, END reachable from the entry point) and returns an immutable StateRunnable[S].
//
// # Example Usage
//
//	type State struct {
//		Count int
//	}
//
//	g := graph.NewStateGraph[State]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, s State) (State, error) {
//		s.Count++
//		return s, nil
//	})
//	g.AddConditionalEdges("increment", func(ctx context.Context, s State) string {
//		if s.Count < 3 {
//			return "again"
//		}
//		return "done"
//	}, map[string]string{"again": "increment", "done": graph.END})
//	g.SetEntryPoint("increment")
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := runnable.Invoke(ctx, State{})
//
// # Recursion Limit
//
// A single invocation may take at most DefaultRecursionLimit steps unless a Config
// passed to InvokeWithConfig says otherwise. Exceeding it returns ErrRecursionLimit.
//
// # Tracing
//
// Attach a Tracer with SetTracer or WithTracer to receive graph, node and edge spans
// through TraceHook callbacks.
//
// # Visualization
//
//	exporter := runnable.GetGraph()
//	fmt.Println(exporter.DrawMermaid())
//	fmt.Println(exporter.DrawDOT())
//	fmt.Println(exporter.DrawASCII())
package graph
