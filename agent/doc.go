// Package agent wires the routing graph of a retrieval-augmented chat agent.
//
// The graph has five steps. "llm" is the entry and always moves to
// "should_continue", which either ends the run or hands over to
// "check_user_query". That step routes to "rag", "tool" or back to "llm";
// both "rag" and "tool" return to "llm".
//
// Every step is a pass-through unless a handler is injected through Options,
// and the decisions are made by a Continuation and a QueryRouter:
//
//	a, err := agent.New(agent.Options{
//		LLM:          agent.NewLLMHandler(model),
//		RAG:          agent.NewRetrievalHandler(retriever),
//		Continuation: agent.ContinuationFunc(needsMore),
//		Router:       agent.KeywordRouter{DocumentKeywords: []string{"document"}},
//	})
//	state, err := a.Ask(ctx, "What does the document say?")
package agent
