package agent

import (
	"slices"

	"github.com/tmc/langchaingo/llms"
)

// Node names of the routing graph.
const (
	NodeLLM            = "llm"
	NodeShouldContinue = "should_continue"
	NodeCheckUserQuery = "check_user_query"
	NodeTool           = "tool"
	NodeRAG            = "rag"
)

// Route keys returned by the conditional edges.
const (
	RouteContinue           = "yes"
	RouteStop               = "no"
	RouteAnswerFromDocument = "answer_from_document"
	RouteToolCall           = "tool_call"
	RouteGeneralQuery       = "general_query"
)

// State flows through the routing graph.
type State struct {
	// Messages is the ordered conversation.
	Messages []llms.MessageContent
	// UserMessage is the pending user message. The LLM step moves it into
	// Messages and clears it, so each turn is sent exactly once.
	UserMessage string
	// Response is the agent's latest answer.
	Response string
}

// NewState returns a state for a single user message.
func NewState(message string) State {
	return State{UserMessage: message}
}

// withMessage returns a copy of s with msg appended. The backing array of
// s.Messages is never written to.
func (s State) withMessage(msg llms.MessageContent) State {
	s.Messages = append(slices.Clip(s.Messages), msg)
	return s
}

// Query returns the pending user message, or the text of the latest human
// message once it has been sent.
func (s State) Query() string {
	if s.UserMessage != "" {
		return s.UserMessage
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role != llms.ChatMessageTypeHuman {
			continue
		}
		for _, part := range m.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				return tp.Text
			}
		}
	}
	return ""
}
