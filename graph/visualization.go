package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Exporter provides methods to export graphs in different formats
type Exporter[S any] struct {
	graph *StateGraph[S]
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter[S any](graph *StateGraph[S]) *Exporter[S] {
	return &Exporter[S]{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// branch is one possible transition out of a node, as drawn.
type branch struct {
	From        string
	To          string
	Label       string
	Conditional bool
}

// branches lists every drawable transition, static edges first in insertion
// order, then conditional routes sorted by source and key.
func (ge *Exporter[S]) branches() []branch {
	var out []branch
	for _, e := range ge.graph.edges {
		out = append(out, branch{From: e.From, To: e.To})
	}
	for _, from := range slices.Sorted(maps.Keys(ge.graph.conditionalEdges)) {
		ce := ge.graph.conditionalEdges[from]
		if ce.PathMap == nil {
			out = append(out, branch{From: from, To: from + "_condition", Label: "?", Conditional: true})
			continue
		}
		for _, key := range slices.Sorted(maps.Keys(ce.PathMap)) {
			out = append(out, branch{From: from, To: ce.PathMap[key], Label: key, Conditional: true})
		}
	}
	return out
}

func (ge *Exporter[S]) referencesEnd() bool {
	return slices.ContainsFunc(ge.branches(), func(b branch) bool { return b.To == END })
}

func (ge *Exporter[S]) isPassThrough(name string) bool {
	n, ok := ge.graph.nodes[name]
	return ok && IsIdentity(n.Handler)
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (ge *Exporter[S]) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options.
// Conditional routes are drawn as dotted arrows labelled with their route key,
// and pass-through nodes are drawn with a dashed border.
func (ge *Exporter[S]) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	if ge.graph.entryPoint != "" {
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", ge.graph.entryPoint, ge.graph.entryPoint)
		fmt.Fprintf(&sb, "    START --> %s\n", ge.graph.entryPoint)
		sb.WriteString("    START([\"START\"])\n")
		sb.WriteString("    style START fill:#90EE90\n")
	}

	for _, name := range ge.graph.NodeNames() {
		if name != ge.graph.entryPoint {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
		}
	}

	if ge.referencesEnd() {
		sb.WriteString("    END([\"END\"])\n")
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	for _, b := range ge.branches() {
		switch {
		case !b.Conditional:
			fmt.Fprintf(&sb, "    %s --> %s\n", b.From, b.To)
		case b.Label == "?":
			fmt.Fprintf(&sb, "    %s -.-> %s((?))\n", b.From, b.To)
			fmt.Fprintf(&sb, "    style %s fill:#FFFFE0,stroke:#333,stroke-dasharray: 5 5\n", b.To)
		default:
			fmt.Fprintf(&sb, "    %s -. %s .-> %s\n", b.From, b.Label, b.To)
		}
	}

	if ge.graph.entryPoint != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", ge.graph.entryPoint)
	}
	for _, name := range ge.graph.NodeNames() {
		if ge.isPassThrough(name) {
			fmt.Fprintf(&sb, "    style %s stroke-dasharray: 3 3\n", name)
		}
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter[S]) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	if ge.graph.entryPoint != "" {
		sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
		fmt.Fprintf(&sb, "    START -> %s;\n", ge.graph.entryPoint)
		fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", ge.graph.entryPoint)
	}

	for _, name := range ge.graph.NodeNames() {
		if name != ge.graph.entryPoint && ge.isPassThrough(name) {
			fmt.Fprintf(&sb, "    %s [style=dashed];\n", name)
		}
	}

	if ge.referencesEnd() {
		sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}

	for _, b := range ge.branches() {
		switch {
		case !b.Conditional:
			fmt.Fprintf(&sb, "    %s -> %s;\n", b.From, b.To)
		case b.Label == "?":
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed, label=\"?\"];\n", b.From, b.To)
			fmt.Fprintf(&sb, "    %s [label=\"?\", shape=diamond, style=filled, fillcolor=lightyellow];\n", b.To)
		default:
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed, label=\"%s\"];\n", b.From, b.To, b.Label)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// DrawASCII generates an ASCII tree representation of the graph
func (ge *Exporter[S]) DrawASCII() string {
	if ge.graph.entryPoint == "" {
		return "No entry point set\n"
	}

	var sb strings.Builder
	visited := make(map[string]bool)

	sb.WriteString("Graph Execution Flow:\n")
	sb.WriteString("├── START\n")

	ge.drawASCIINode(ge.graph.entryPoint, "", "│   ", true, visited, &sb)

	return sb.String()
}

// drawASCIINode recursively draws ASCII representation of nodes
func (ge *Exporter[S]) drawASCIINode(nodeName, label, prefix string, isLast bool, visited map[string]bool, sb *strings.Builder) {
	connector := "├──"
	nextPrefix := prefix + "│   "
	if isLast {
		connector = "└──"
		nextPrefix = prefix + "    "
	}

	text := nodeName
	if label != "" {
		text = fmt.Sprintf("[%s] %s", label, nodeName)
	}

	if nodeName == END {
		fmt.Fprintf(sb, "%s%s %s\n", prefix, connector, text)
		return
	}
	if visited[nodeName] {
		fmt.Fprintf(sb, "%s%s %s (cycle)\n", prefix, connector, text)
		return
	}
	visited[nodeName] = true

	fmt.Fprintf(sb, "%s%s %s\n", prefix, connector, text)

	var children []branch
	for _, b := range ge.branches() {
		if b.From == nodeName {
			children = append(children, b)
		}
	}

	for i, child := range children {
		isLastChild := i == len(children)-1
		if child.Label == "?" {
			condConnector := "├──"
			if isLastChild {
				condConnector = "└──"
			}
			fmt.Fprintf(sb, "%s%s (?)\n", nextPrefix, condConnector)
			continue
		}
		ge.drawASCIINode(child.To, child.Label, nextPrefix, isLastChild, visited, sb)
	}
}
