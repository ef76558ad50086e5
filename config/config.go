// Package config loads agentapis settings from a TOML file and AGENTAPIS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smallnest/agentapis/log"
	"github.com/smallnest/agentapis/provider"
	"github.com/smallnest/agentapis/rag"
	"github.com/smallnest/agentapis/rag/indexer"
	"github.com/smallnest/agentapis/rag/splitter"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "agentapis.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AGENTAPIS_"

// Config is the full configuration.
type Config struct {
	LLM       ModelConfig `toml:"llm"`
	Embedding ModelConfig `toml:"embedding"`
	Index     IndexConfig `toml:"index"`
	Cache     CacheConfig `toml:"cache"`
	Agent     AgentConfig `toml:"agent"`
	Log       LogConfig   `toml:"log"`
}

// ModelConfig selects a model backend.
type ModelConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

// Settings converts c for the provider package.
func (c ModelConfig) Settings() provider.Settings {
	return provider.Settings{
		Provider: c.Provider,
		Model:    c.Model,
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
	}
}

// IndexConfig controls ingestion and retrieval.
type IndexConfig struct {
	File            string  `toml:"file"`
	Collection      string  `toml:"collection"`
	StorageLocation string  `toml:"storage_location"`
	ChunkSize       int     `toml:"chunk_size"`
	ChunkOverlap    int     `toml:"chunk_overlap"`
	K               int     `toml:"k"`
	ScoreThreshold  float64 `toml:"score_threshold"`
	SearchType      string  `toml:"search_type"`
}

// Retrieval returns the retrieval settings.
func (c IndexConfig) Retrieval() rag.RetrievalConfig {
	return rag.RetrievalConfig{
		K:              c.K,
		ScoreThreshold: c.ScoreThreshold,
		SearchType:     c.SearchType,
	}
}

// CacheConfig enables the Redis embedding cache.
type CacheConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
	// TTL is a Go duration string such as "24h". Empty keeps entries forever.
	TTL string `toml:"ttl"`
}

// Expiration parses TTL.
func (c CacheConfig) Expiration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.TTL)
}

// AgentConfig tunes the routing graph.
type AgentConfig struct {
	RecursionLimit   int      `toml:"recursion_limit"`
	MaxTurns         int      `toml:"max_turns"`
	SystemPrompt     string   `toml:"system_prompt"`
	DocumentKeywords []string `toml:"document_keywords"`
	ToolKeywords     []string `toml:"tool_keywords"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: ModelConfig{
			Provider: provider.Ollama,
			Model:    provider.DefaultChatModel,
		},
		Embedding: ModelConfig{
			Provider: provider.Ollama,
			Model:    provider.DefaultEmbeddingModel,
		},
		Index: IndexConfig{
			File:            indexer.DefaultFilePath,
			Collection:      indexer.DefaultCollection,
			StorageLocation: indexer.DefaultStorageLocation,
			ChunkSize:       splitter.DefaultChunkSize,
			ChunkOverlap:    splitter.DefaultChunkOverlap,
			K:               rag.DefaultK,
			SearchType:      rag.SearchSimilarity,
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
		},
		Agent: AgentConfig{
			MaxTurns:         1,
			DocumentKeywords: []string{"document", "according to", "in the file"},
			ToolKeywords:     []string{"calculate", "search the web", "weather"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and validates
// the result. A missing file is not an error unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup,
// for example AGENTAPIS_LLM_MODEL or AGENTAPIS_INDEX_CHUNK_SIZE.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LLM_PROVIDER":           &c.LLM.Provider,
		"LLM_MODEL":              &c.LLM.Model,
		"LLM_BASE_URL":           &c.LLM.BaseURL,
		"LLM_API_KEY":            &c.LLM.APIKey,
		"EMBEDDING_PROVIDER":     &c.Embedding.Provider,
		"EMBEDDING_MODEL":        &c.Embedding.Model,
		"EMBEDDING_BASE_URL":     &c.Embedding.BaseURL,
		"EMBEDDING_API_KEY":      &c.Embedding.APIKey,
		"INDEX_FILE":             &c.Index.File,
		"INDEX_COLLECTION":       &c.Index.Collection,
		"INDEX_STORAGE_LOCATION": &c.Index.StorageLocation,
		"INDEX_SEARCH_TYPE":      &c.Index.SearchType,
		"CACHE_ADDR":             &c.Cache.Addr,
		"CACHE_PASSWORD":         &c.Cache.Password,
		"CACHE_PREFIX":           &c.Cache.Prefix,
		"CACHE_TTL":              &c.Cache.TTL,
		"AGENT_SYSTEM_PROMPT":    &c.Agent.SystemPrompt,
		"LOG_LEVEL":              &c.Log.Level,
	}
	ints := map[string]*int{
		"INDEX_CHUNK_SIZE":      &c.Index.ChunkSize,
		"INDEX_CHUNK_OVERLAP":   &c.Index.ChunkOverlap,
		"INDEX_K":               &c.Index.K,
		"CACHE_DB":              &c.Cache.DB,
		"AGENT_RECURSION_LIMIT": &c.Agent.RecursionLimit,
		"AGENT_MAX_TURNS":       &c.Agent.MaxTurns,
	}

	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "INDEX_SCORE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid %sINDEX_SCORE_THRESHOLD: %w", EnvPrefix, err)
		}
		c.Index.ScoreThreshold = f
	}
	if v, ok := lookup(EnvPrefix + "CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sCACHE_ENABLED: %w", EnvPrefix, err)
		}
		c.Cache.Enabled = b
	}
	return nil
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	if err := rag.ValidateChunking(c.Index.ChunkSize, c.Index.ChunkOverlap); err != nil {
		return err
	}
	if c.Index.K < 0 {
		return fmt.Errorf("index k %d must not be negative", c.Index.K)
	}
	switch c.Index.SearchType {
	case "", rag.SearchSimilarity, rag.SearchMMR:
	default:
		return fmt.Errorf("unknown search type %q", c.Index.SearchType)
	}
	if c.Agent.RecursionLimit < 0 {
		return fmt.Errorf("recursion limit %d must not be negative", c.Agent.RecursionLimit)
	}
	if _, err := c.Cache.Expiration(); err != nil {
		return fmt.Errorf("invalid cache ttl: %w", err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Save writes c to path as TOML.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
