package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/bookflow/pkg/domain"
)

func TestJSONHandler_InputFormats(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		`"busca Dune"`,
		`{"message": "añade 2 copias"}`,
		`texto plano`,
		``,
		`"ultima"`,
	}, "\n"))
	h := NewJSONHandler(in, &bytes.Buffer{})

	want := []string{"busca Dune", "añade 2 copias", "texto plano", "ultima"}
	for _, w := range want {
		got, err := h.Input(context.Background())
		if err != nil {
			t.Fatalf("Input failed: %v", err)
		}
		if got != w {
			t.Errorf("expected %q, got %q", w, got)
		}
	}
	if _, err := h.Input(context.Background()); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestJSONHandler_OutputIsOneLinePerMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	h := NewJSONHandler(strings.NewReader(""), buf)

	msg := domain.Message{ID: "m1", Role: domain.RoleAssistant, Text: "hola", Intent: domain.IntentSearch, Turn: 3}
	if err := h.Output(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if err := h.SystemOutput(context.Background(), "aviso"); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded domain.Message
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.Text != "hola" || decoded.Turn != 3 {
		t.Errorf("unexpected message: %+v", decoded)
	}
	if !strings.Contains(lines[1], `"system":"aviso"`) {
		t.Errorf("unexpected system line: %s", lines[1])
	}
}
