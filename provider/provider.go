// Package provider builds langchaingo chat models and embedders from a provider name and model string.
package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/agentapis/rag"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported providers.
const (
	Ollama = "ollama"
	OpenAI = "openai"
)

// Default models.
const (
	DefaultChatModel      = "llama3.1:latest"
	DefaultEmbeddingModel = "nomic-embed-text:latest"
)

// ErrUnknownProvider is returned for provider names other than Ollama and OpenAI.
var ErrUnknownProvider = errors.New("unknown provider")

// Settings selects a backend and model.
type Settings struct {
	// Provider is Ollama (default) or OpenAI.
	Provider string
	Model    string
	// BaseURL overrides the server address.
	BaseURL string
	// APIKey is used by OpenAI. Empty falls back to OPENAI_API_KEY.
	APIKey string
}

func (s Settings) provider() string {
	if s.Provider == "" {
		return Ollama
	}
	return strings.ToLower(s.Provider)
}

// NewChatModel returns the chat model described by s.
func NewChatModel(s Settings) (llms.Model, error) {
	model := s.Model
	if model == "" {
		model = DefaultChatModel
	}

	switch p := s.provider(); p {
	case Ollama:
		opts := []ollama.Option{ollama.WithModel(model)}
		if s.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(s.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama model %s: %w", model, err)
		}
		return llm, nil
	case OpenAI:
		llm, err := openai.New(openAIOptions(s, openai.WithModel(model))...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai model %s: %w", model, err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
}

// NewEmbedder returns the embedder described by s.
func NewEmbedder(s Settings) (*rag.LangChainEmbedder, error) {
	model := s.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	var client embeddings.EmbedderClient
	switch p := s.provider(); p {
	case Ollama:
		opts := []ollama.Option{ollama.WithModel(model)}
		if s.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(s.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama embedder %s: %w", model, err)
		}
		client = llm
	case OpenAI:
		llm, err := openai.New(openAIOptions(s, openai.WithEmbeddingModel(model))...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder %s: %w", model, err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return rag.NewLangChainEmbedder(embedder), nil
}

func openAIOptions(s Settings, opts ...openai.Option) []openai.Option {
	if s.APIKey != "" {
		opts = append(opts, openai.WithToken(s.APIKey))
	}
	if s.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(s.BaseURL))
	}
	return opts
}
