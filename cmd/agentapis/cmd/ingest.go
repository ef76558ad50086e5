package cmd

import (
	"github.com/smallnest/agentapis/rag/indexer"
	"github.com/spf13/cobra"
)

var (
	ingestFile         string
	ingestCollection   string
	ingestLocation     string
	ingestChunkSize    int
	ingestChunkOverlap int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index a text file into a collection",
	Long: `Loads a text file, splits it into overlapping chunks, embeds them and
appends them to the named collection, creating it if needed.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Text file to index (default from config)")
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "Collection name (default from config)")
	ingestCmd.Flags().StringVar(&ingestLocation, "location", "", "Storage directory or postgres:// DSN (default from config)")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "Maximum chunk length in characters (default from config)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", 0, "Characters shared by neighbouring chunks (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	idx := cfg.Index
	if ingestFile != "" {
		idx.File = ingestFile
	}
	if ingestCollection != "" {
		idx.Collection = ingestCollection
	}
	if ingestLocation != "" {
		idx.StorageLocation = ingestLocation
	}
	if cmd.Flags().Changed("chunk-size") {
		idx.ChunkSize = ingestChunkSize
	}
	if cmd.Flags().Changed("chunk-overlap") {
		idx.ChunkOverlap = ingestChunkOverlap
	}

	embedder, closeEmbedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	r, err := indexer.Ingest(cmd.Context(), indexer.IngestOptions{
		FilePath:        idx.File,
		Collection:      idx.Collection,
		StorageLocation: idx.StorageLocation,
		EmbeddingModel:  cfg.Embedding.Model,
		ChunkSize:       idx.ChunkSize,
		ChunkOverlap:    idx.ChunkOverlap,
		Embedder:        embedder,
		Retrieval:       idx.Retrieval(),
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	count, err := r.Store().Count(cmd.Context(), r.Collection())
	if err != nil {
		return err
	}
	cmd.Printf("Collection %s at %s now holds %d chunks\n", r.Collection(), idx.StorageLocation, count)
	return nil
}
