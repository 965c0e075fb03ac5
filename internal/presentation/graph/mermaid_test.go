package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/bookflow/internal/presentation/graph"
	"github.com/aretw0/bookflow/pkg/domain"
	turngraph "github.com/aretw0/bookflow/pkg/graph"
)

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(turngraph.Default(), nil)

	contains := []string{
		"graph TD",
		`VALIDATE_INPUT(("VALIDATE_INPUT"))`,
		`ASK_INPUT[/"ASK_INPUT"/]`,
		`APPLY_ACTION[["APPLY_ACTION"]]`,
		`PERSIST[["PERSIST"]]`,
		`LOAD_CONTEXT["LOAD_CONTEXT"]`,
		`DONE(["DONE"])`,
		`VALIDATE_INPUT -- "missing_data" --> ASK_INPUT`,
		`BUILD_RESPONSE -- "response_built" --> DONE`,
		`PERSIST -. "action_failed" .-> BUILD_RESPONSE`,
	}
	for _, want := range contains {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "classDef") {
		t.Errorf("no overlay styles expected without an overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	trace := []domain.State{
		domain.StateValidateInput,
		domain.StateLoadContext,
		domain.StateApplyAction,
		domain.StatePersist,
		domain.StateBuildResponse,
		domain.StateDone,
	}
	got := graph.GenerateMermaid(turngraph.Default(), graph.OverlayFromTrace(trace))

	for _, want := range []string{
		"class VALIDATE_INPUT visited;",
		"class PERSIST visited;",
		"class DONE current;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "class ASK_INPUT") {
		t.Errorf("ASK_INPUT was not visited:\n%s", got)
	}
	if strings.Contains(got, "class DONE visited;") {
		t.Errorf("current state must not also be styled visited")
	}
}

func TestOverlayFromTrace_Empty(t *testing.T) {
	if graph.OverlayFromTrace(nil) != nil {
		t.Error("expected nil overlay for an empty trace")
	}
}
