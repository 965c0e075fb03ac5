package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/bookflow/pkg/domain"
)

type echoTurns struct {
	seen []string
	fail map[string]error
}

func (e *echoTurns) HandleTurn(ctx context.Context, userID, text string) (domain.Message, error) {
	e.seen = append(e.seen, userID+":"+text)
	if err := e.fail[text]; err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		Role: domain.RoleAssistant,
		Text: "eco: " + text,
		Turn: uint64(len(e.seen)),
	}, nil
}

func TestRunner_LoopsUntilEOF(t *testing.T) {
	in := strings.NewReader("hola\nbusca Dune\n")
	out := &bytes.Buffer{}
	turns := &echoTurns{}

	r := NewRunner(
		WithUserID("ana"),
		WithInputHandler(NewTextHandler(in, out)),
	)
	if err := r.Run(context.Background(), turns); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(turns.seen) != 2 || turns.seen[1] != "ana:busca Dune" {
		t.Errorf("unexpected turns: %v", turns.seen)
	}
	if !strings.Contains(out.String(), "eco: busca Dune") {
		t.Errorf("reply not printed, got %q", out.String())
	}
}

func TestRunner_ExitCommand(t *testing.T) {
	in := strings.NewReader("hola\n/salir\nno llega\n")
	turns := &echoTurns{}

	r := NewRunner(WithInputHandler(NewTextHandler(in, &bytes.Buffer{})))
	if err := r.Run(context.Background(), turns); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(turns.seen) != 1 {
		t.Errorf("expected loop to stop at /salir, saw %v", turns.seen)
	}
}

func TestRunner_TurnErrorIsReportedAndLoopContinues(t *testing.T) {
	in := strings.NewReader("rompe\nsigue\n")
	out := &bytes.Buffer{}
	turns := &echoTurns{fail: map[string]error{"rompe": errors.New("store offline")}}

	r := NewRunner(WithInputHandler(NewTextHandler(in, out)))
	if err := r.Run(context.Background(), turns); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "[Sistema] store offline") {
		t.Errorf("expected system error line, got %q", got)
	}
	if !strings.Contains(got, "eco: sigue") {
		t.Errorf("expected loop to continue, got %q", got)
	}
}

func TestRunner_CancelledContextStopsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("hola\n"), &bytes.Buffer{})))
	if err := r.Run(ctx, &echoTurns{}); err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
}

func TestRunner_Greeting(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRunner(
		WithGreeting("Bienvenido"),
		WithInputHandler(NewTextHandler(strings.NewReader(""), out)),
	)
	if err := r.Run(context.Background(), &echoTurns{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Bienvenido") {
		t.Errorf("greeting missing: %q", out.String())
	}
}
