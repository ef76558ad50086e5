package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/agentapis/graph"
	"github.com/smallnest/agentapis/rag"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyResponse is returned when the chat model produces no choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

// LLMHandler answers the user message with a chat model.
type LLMHandler struct {
	model        llms.Model
	systemPrompt string
	callOptions  []llms.CallOption
}

var _ graph.Handler[State] = (*LLMHandler)(nil)

// LLMOption configures an LLMHandler.
type LLMOption func(*LLMHandler)

// WithSystemPrompt prepends a system message to every call.
func WithSystemPrompt(prompt string) LLMOption {
	return func(h *LLMHandler) {
		h.systemPrompt = prompt
	}
}

// WithCallOptions passes options to every GenerateContent call.
func WithCallOptions(opts ...llms.CallOption) LLMOption {
	return func(h *LLMHandler) {
		h.callOptions = append(h.callOptions, opts...)
	}
}

// NewLLMHandler creates a handler backed by model.
func NewLLMHandler(model llms.Model, opts ...LLMOption) *LLMHandler {
	h := &LLMHandler{model: model}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle moves a pending user message into the conversation, calls the model
// and records the answer.
func (h *LLMHandler) Handle(ctx context.Context, state State) (State, error) {
	if state.UserMessage != "" {
		state = state.withMessage(llms.TextParts(llms.ChatMessageTypeHuman, state.UserMessage))
		state.UserMessage = ""
	}

	messages := state.Messages
	if h.systemPrompt != "" {
		messages = append([]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, h.systemPrompt)}, messages...)
	}

	resp, err := h.model.GenerateContent(ctx, messages, h.callOptions...)
	if err != nil {
		return state, fmt.Errorf("llm call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return state, ErrEmptyResponse
	}

	answer := resp.Choices[0].Content
	state.Response = answer
	return state.withMessage(llms.TextParts(llms.ChatMessageTypeAI, answer)), nil
}

// RetrievalHandler adds chunks relevant to the user message to the conversation
// as a system message.
type RetrievalHandler struct {
	retriever rag.Retriever
}

var _ graph.Handler[State] = (*RetrievalHandler)(nil)

// NewRetrievalHandler creates a handler that queries retriever.
func NewRetrievalHandler(retriever rag.Retriever) *RetrievalHandler {
	return &RetrievalHandler{retriever: retriever}
}

// Handle retrieves context for the latest user query. Nothing is added when no chunk matches.
func (h *RetrievalHandler) Handle(ctx context.Context, state State) (State, error) {
	chunks, err := h.retriever.Retrieve(ctx, state.Query())
	if err != nil {
		return state, fmt.Errorf("retrieval failed: %w", err)
	}
	if len(chunks) == 0 {
		return state, nil
	}

	var sb strings.Builder
	sb.WriteString("Answer using the following context:\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "\n[%d] %s", i+1, c.Content)
	}
	return state.withMessage(llms.TextParts(llms.ChatMessageTypeSystem, sb.String())), nil
}
