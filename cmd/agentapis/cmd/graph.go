package cmd

import (
	"fmt"
	"os"

	"github.com/smallnest/agentapis/agent"
	"github.com/spf13/cobra"
)

var (
	graphFormat string
	graphOut    string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Compile the routing graph and render it",
	Long: `Compiles the routing graph, which fails if any transition target is
undefined or END is unreachable, and renders it as Mermaid, Graphviz DOT or
an ASCII tree.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "mermaid", "Output format: mermaid, dot, ascii")
	graphCmd.Flags().StringVarP(&graphOut, "out", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, _ []string) error {
	a, err := agent.New(agent.Options{})
	if err != nil {
		return fmt.Errorf("failed to compile graph: %w", err)
	}

	exporter := a.Graph()
	var out string
	switch graphFormat {
	case "mermaid":
		out = exporter.DrawMermaid()
	case "dot":
		out = exporter.DrawDOT()
	case "ascii":
		out = exporter.DrawASCII()
	default:
		return fmt.Errorf("unknown format %q", graphFormat)
	}

	if graphOut == "" {
		cmd.Print(out)
		return nil
	}
	if err := os.WriteFile(graphOut, []byte(out), 0o644); err != nil {
		return err
	}
	cmd.Printf("Graph written to %s\n", graphOut)
	return nil
}
