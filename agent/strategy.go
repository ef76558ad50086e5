package agent

import (
	"context"
	"strings"
)

// Continuation decides whether the agent keeps going after an LLM step.
type Continuation interface {
	ShouldContinue(ctx context.Context, state State) bool
}

// ContinuationFunc adapts a function to Continuation.
type ContinuationFunc func(ctx context.Context, state State) bool

// ShouldContinue implements Continuation.
func (f ContinuationFunc) ShouldContinue(ctx context.Context, state State) bool {
	return f(ctx, state)
}

// FixedContinuation always returns its own value.
type FixedContinuation bool

// ShouldContinue implements Continuation.
func (c FixedContinuation) ShouldContinue(context.Context, State) bool {
	return bool(c)
}

// Intent is what a router detected in the user query.
type Intent struct {
	AnswerFromDocument bool
	ToolCall           bool
}

// Route maps the intent to a route key. A document answer wins over a tool
// call, which wins over a general query.
func (i Intent) Route() string {
	switch {
	case i.AnswerFromDocument:
		return RouteAnswerFromDocument
	case i.ToolCall:
		return RouteToolCall
	default:
		return RouteGeneralQuery
	}
}

// QueryRouter classifies the user query.
type QueryRouter interface {
	Classify(ctx context.Context, state State) Intent
}

// RouterFunc adapts a function to QueryRouter.
type RouterFunc func(ctx context.Context, state State) Intent

// Classify implements QueryRouter.
func (f RouterFunc) Classify(ctx context.Context, state State) Intent {
	return f(ctx, state)
}

// FixedRouter always returns the same intent.
type FixedRouter Intent

// Classify implements QueryRouter.
func (r FixedRouter) Classify(context.Context, State) Intent {
	return Intent(r)
}

// KeywordRouter detects intents by case-insensitive keyword matches in the user query.
type KeywordRouter struct {
	DocumentKeywords []string
	ToolKeywords     []string
}

// Classify implements QueryRouter.
func (r KeywordRouter) Classify(_ context.Context, state State) Intent {
	msg := strings.ToLower(state.Query())
	return Intent{
		AnswerFromDocument: containsAny(msg, r.DocumentKeywords),
		ToolCall:           containsAny(msg, r.ToolKeywords),
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
