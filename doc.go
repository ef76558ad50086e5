// agentapis - a routing graph and document retrieval for RAG chat agents in Go
//
// agentapis has two independent halves. The routing graph decides, step by
// step, whether a chat agent answers directly, calls a tool or retrieves
// document context first. The indexer loads text files, splits them into
// overlapping chunks, embeds them and stores them in named collections that a
// retriever later queries by similarity.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	embedder, _ := provider.NewEmbedder(provider.Settings{})
//	retriever, _ := indexer.Ingest(ctx, indexer.IngestOptions{
//		FilePath: "./documents/info.txt",
//		Embedder: embedder,
//	})
//	defer retriever.Close()
//
//	model, _ := provider.NewChatModel(provider.Settings{})
//	a, _ := agent.New(agent.Options{
//		LLM: agent.NewLLMHandler(model),
//		RAG: agent.NewRetrievalHandler(retriever),
//	})
//	state, _ := a.Ask(ctx, "What colour is the sky?")
//	fmt.Println(state.Response)
//
// # Package Structure
//
// ### graph/
// Generic typed state graph: nodes, static and conditional edges with path maps,
// validation at compile time, a sequential runtime bounded by a recursion limit,
// tracing, and Mermaid, DOT and ASCII export.
//
// ### agent/
// The routing graph itself: llm, should_continue, check_user_query, tool and rag.
// Every step is a pass-through until a handler is injected; the two decisions
// are made by a Continuation and a QueryRouter.
//
// ### rag/
// Core retrieval types, sentinel errors and langchaingo adapters.
//   - rag/loader: text file loader
//   - rag/splitter: recursive character splitter with size and overlap
//   - rag/store/sqlite: default collection store, one file per storage location
//   - rag/store/postgres: collection store on PostgreSQL
//   - rag/store/memory: in-process collection store
//   - rag/embedcache: Redis cache in front of any embedder
//   - rag/retriever: similarity and MMR retrieval over one collection
//   - rag/indexer: Ingest and OpenRetriever
//
// ### provider/
// Ollama and OpenAI chat models and embedders via langchaingo.
//
// ### config/
// TOML configuration with AGENTAPIS_* environment overrides.
//
// ### log/
// Leveled logger backed by golog.
//
// ### cmd/agentapis
// Command line: graph, ingest, query and run.
package agentapis // import "github.com/smallnest/agentapis"
