package main

import (
	"encoding/json"
	"fmt"

	presentation "github.com/aretw0/bookflow/internal/presentation/graph"
	"github.com/aretw0/bookflow/pkg/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the turn graph",
	Long:  `Outputs the per-turn state machine as a Mermaid diagram (graph TD) or as JSON edges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		g := graph.Default()
		if err := g.Validate(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch format {
		case "mermaid":
			fmt.Fprint(out, presentation.GenerateMermaid(g, nil))
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(g.Edges())
		default:
			return fmt.Errorf("unknown format %q: expected mermaid or json", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or json")
}
