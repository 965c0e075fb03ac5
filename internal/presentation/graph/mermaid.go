package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/bookflow/pkg/domain"
	turngraph "github.com/aretw0/bookflow/pkg/graph"
)

// Overlay contains the path of one turn to highlight on the graph.
type Overlay struct {
	Visited []domain.State
	Current domain.State
}

// OverlayFromTrace marks every traced state as visited and the last one as current.
func OverlayFromTrace(trace []domain.State) *Overlay {
	if len(trace) == 0 {
		return nil
	}
	return &Overlay{Visited: trace, Current: trace[len(trace)-1]}
}

// GenerateMermaid produces a Mermaid flowchart for the turn graph.
// It applies semantic styling:
// - Entry (VALIDATE_INPUT): ((Circle))
// - Side-effecting (APPLY_ACTION, PERSIST): [[Subroutine]]
// - Waiting on the user (ASK_INPUT): [/Parallelogram/]
// - Terminal: ([Stadium])
// - Default: [Rectangle]
// Failure edges are dotted.
func GenerateMermaid(g *turngraph.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, s := range domain.States {
		if len(g.Outgoing(s)) == 0 && !s.Terminal() {
			continue
		}
		opener, closer := shape(s)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", s, opener, s, closer)
	}

	for _, e := range g.Edges() {
		arrow := fmt.Sprintf("-- \"%s\" -->", e.On)
		if e.On == domain.CondActionFailed {
			arrow = fmt.Sprintf("-. \"%s\" .->", e.On)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", e.From, arrow, e.To)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.State]bool)
		for _, s := range overlay.Visited {
			if !s.Valid() || seen[s] || s == overlay.Current {
				continue
			}
			seen[s] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", s)
		}
		if overlay.Current.Valid() {
			fmt.Fprintf(&sb, "    class %s current;\n", overlay.Current)
		}
	}

	return sb.String()
}

func shape(s domain.State) (string, string) {
	switch s {
	case domain.StateValidateInput:
		return "((", "))"
	case domain.StateApplyAction, domain.StatePersist:
		return "[[", "]]"
	case domain.StateAskInput:
		return "[/", "/]"
	}
	if s.Terminal() {
		return "([", "])"
	}
	return "[", "]"
}
