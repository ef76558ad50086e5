package graph

import (
	"context"
	"errors"
	"fmt"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

// DefaultRecursionLimit is the maximum number of steps a single invocation may take
// when no Config overrides it.
const DefaultRecursionLimit = 25

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrAmbiguousEdge is returned when a node has more than one way to leave it.
	ErrAmbiguousEdge = errors.New("node has more than one outgoing transition")

	// ErrNoTerminalPath is returned when END cannot be reached from the entry point.
	ErrNoTerminalPath = errors.New("end is not reachable from entry point")

	// ErrUnknownRoute is returned when a condition yields a key missing from its path map.
	ErrUnknownRoute = errors.New("condition returned unknown route")

	// ErrRecursionLimit is returned when an invocation exceeds its step budget.
	ErrRecursionLimit = errors.New("recursion limit reached")
)

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// ConditionalEdge routes from a node to one of several targets at runtime.
type ConditionalEdge[S any] struct {
	// From is the node the edge leaves.
	From string

	// Condition returns a route key for the current state.
	Condition func(ctx context.Context, state S) string

	// PathMap maps route keys to target node names. A nil map means the
	// condition returns node names directly.
	PathMap map[string]string
}

// resolve maps a route key to its target node.
func (e ConditionalEdge[S]) resolve(key string) (string, error) {
	if e.PathMap == nil {
		if key == "" {
			return "", fmt.Errorf("%w: empty route from %s", ErrUnknownRoute, e.From)
		}
		return key, nil
	}
	target, ok := e.PathMap[key]
	if !ok {
		return "", fmt.Errorf("%w: %q from %s", ErrUnknownRoute, key, e.From)
	}
	return target, nil
}
