package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/smallnest/agentapis/rag"
	"github.com/smallnest/agentapis/rag/indexer"
	"github.com/spf13/cobra"
)

var (
	queryCollection string
	queryLocation   string
	queryK          int
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	styleScore  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleSubtle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleChunk  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1)
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve the chunks most similar to a query",
	Long: `Opens an existing collection and prints the top matching chunks.
Fails if the collection does not exist.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryCollection, "collection", "", "Collection name (default from config)")
	queryCmd.Flags().StringVar(&queryLocation, "location", "", "Storage directory or postgres:// DSN (default from config)")
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "Number of chunks to return (default from config)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	idx := cfg.Index
	if queryCollection != "" {
		idx.Collection = queryCollection
	}
	if queryLocation != "" {
		idx.StorageLocation = queryLocation
	}
	if queryK > 0 {
		idx.K = queryK
	}

	embedder, closeEmbedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	r, err := indexer.OpenRetriever(cmd.Context(), indexer.OpenOptions{
		Collection:      idx.Collection,
		StorageLocation: idx.StorageLocation,
		EmbeddingModel:  cfg.Embedding.Model,
		Embedder:        embedder,
		Retrieval:       idx.Retrieval(),
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	query := strings.Join(args, " ")
	results, err := r.RetrieveWithConfig(cmd.Context(), query, nil)
	if err != nil {
		return err
	}

	cmd.Println(renderResults(query, results))
	return nil
}

func renderResults(query string, results []rag.SearchResult) string {
	if len(results) == 0 {
		return styleSubtle.Render(fmt.Sprintf("No chunks match %q.", query))
	}

	sections := []string{styleTitle.Render(fmt.Sprintf("%d chunks for %q", len(results), query))}
	for i, res := range results {
		header := fmt.Sprintf("[%d] %s %s", i+1,
			styleScore.Render(fmt.Sprintf("%.3f", res.Score)),
			styleSubtle.Render(fmt.Sprintf("%s #%d", res.Chunk.Source, res.Chunk.Index)))
		sections = append(sections, header, styleChunk.Render(res.Chunk.Content))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
