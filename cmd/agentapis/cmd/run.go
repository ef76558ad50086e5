package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/smallnest/agentapis/agent"
	"github.com/smallnest/agentapis/provider"
	"github.com/smallnest/agentapis/rag"
	"github.com/smallnest/agentapis/rag/indexer"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
)

var runRAG bool

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Send a message through the routing graph",
	Long: `Invokes the routing graph with the configured chat model as the llm
step. With --rag the rag step retrieves context from the configured
collection; otherwise it stays a pass-through.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAgent,
}

func init() {
	runCmd.Flags().BoolVar(&runRAG, "rag", false, "Retrieve context from the configured collection in the rag step")
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	model, err := provider.NewChatModel(cfg.LLM.Settings())
	if err != nil {
		return err
	}

	var llmOpts []agent.LLMOption
	if cfg.Agent.SystemPrompt != "" {
		llmOpts = append(llmOpts, agent.WithSystemPrompt(cfg.Agent.SystemPrompt))
	}

	opts := agent.Options{
		LLM:          agent.NewLLMHandler(model, llmOpts...),
		Continuation: maxTurns(cfg.Agent.MaxTurns),
		Router: agent.KeywordRouter{
			DocumentKeywords: cfg.Agent.DocumentKeywords,
			ToolKeywords:     cfg.Agent.ToolKeywords,
		},
		Logger:         logger,
		RecursionLimit: cfg.Agent.RecursionLimit,
	}

	if runRAG {
		embedder, closeEmbedder, err := newEmbedder(cfg, logger)
		if err != nil {
			return err
		}
		defer closeEmbedder()

		r, err := indexer.OpenRetriever(cmd.Context(), indexer.OpenOptions{
			Collection:      cfg.Index.Collection,
			StorageLocation: cfg.Index.StorageLocation,
			EmbeddingModel:  cfg.Embedding.Model,
			Embedder:        embedder,
			Retrieval:       cfg.Index.Retrieval(),
			Logger:          logger,
		})
		switch {
		case errors.Is(err, rag.ErrCollectionNotFound):
			logger.Warn("rag step disabled: %v", err)
		case err != nil:
			return err
		default:
			defer r.Close()
			opts.RAG = agent.NewRetrievalHandler(r)
		}
	}

	a, err := agent.New(opts)
	if err != nil {
		return err
	}

	state, err := a.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	cmd.Println(state.Response)
	return nil
}

// maxTurns continues until the model has answered n times.
func maxTurns(n int) agent.Continuation {
	if n <= 1 {
		return agent.FixedContinuation(false)
	}
	return agent.ContinuationFunc(func(_ context.Context, state agent.State) bool {
		answers := 0
		for _, m := range state.Messages {
			if m.Role == llms.ChatMessageTypeAI {
				answers++
			}
		}
		return answers < n
	})
}
