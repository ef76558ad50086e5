package cmd

import (
	"context"

	"github.com/smallnest/agentapis/config"
	"github.com/smallnest/agentapis/log"
	"github.com/smallnest/agentapis/provider"
	"github.com/smallnest/agentapis/rag"
	"github.com/smallnest/agentapis/rag/embedcache"
	"github.com/spf13/cobra"
)

var (
	// configPath is the TOML configuration file
	configPath string
	// logLevel overrides the configured log level
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agentapis",
	Short: "Routing graph and document retrieval for a RAG chat agent",
	Long: `agentapis wires a chat agent as a routing graph and maintains the
document collections it retrieves from.

Examples:
  # Render the routing graph as Mermaid
  agentapis graph

  # Index the default document into the "info" collection
  agentapis ingest --file ./documents/info.txt --collection info

  # Query the collection
  agentapis query --collection info "sky color"

  # Ask the agent
  agentapis run "What colour is the sky?"`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, none (overrides the config file)")
}

// loadConfig reads the configuration. The file is optional unless --config was given explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, log.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := log.NewCustomLogger(cmd.ErrOrStderr(), level)
	return cfg, logger, nil
}

// newEmbedder builds the configured embedder, wrapped in the Redis cache when enabled.
// The returned function releases the cache connection.
func newEmbedder(cfg config.Config, logger log.Logger) (rag.Embedder, func() error, error) {
	embedder, err := provider.NewEmbedder(cfg.Embedding.Settings())
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return embedder, func() error { return nil }, nil
	}

	ttl, err := cfg.Cache.Expiration()
	if err != nil {
		return nil, nil, err
	}
	cache := embedcache.Dial(embedder, embedcache.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Prefix:   cfg.Cache.Prefix,
		TTL:      ttl,
		Model:    cfg.Embedding.Model,
		Logger:   logger,
	})
	logger.Debug("embedding cache enabled at %s", cfg.Cache.Addr)
	return cache, cache.Close, nil
}
