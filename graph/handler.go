package graph

import "context"

// Handler processes the state at a single node and returns the updated state.
type Handler[S any] interface {
	Handle(ctx context.Context, state S) (S, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc[S any] func(ctx context.Context, state S) (S, error)

// Handle implements Handler.
func (f HandlerFunc[S]) Handle(ctx context.Context, state S) (S, error) {
	return f(ctx, state)
}

// Identity is a Handler that returns the state unchanged. Nodes built on it
// carry graph structure only.
type Identity[S any] struct{}

// Handle implements Handler.
func (Identity[S]) Handle(_ context.Context, state S) (S, error) {
	return state, nil
}

// IsIdentity reports whether h is a pass-through handler.
func IsIdentity[S any](h Handler[S]) bool {
	switch h.(type) {
	case Identity[S], *Identity[S]:
		return true
	}
	return false
}
