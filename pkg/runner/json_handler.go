package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/bookflow/pkg/domain"
)

// JSONHandler implements the IOHandler interface for JSON Lines communication.
//
// Each input line may be a JSON string, an object with a "message" field,
// or plain text. Each reply is emitted as one encoded domain.Message.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

type jsonInput struct {
	Message string `json:"message"`
}

// systemLine is the shape of SystemOutput lines.
type systemLine struct {
	System string `json:"system"`
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return "", err
		}
		text := decodeLine(strings.TrimSpace(line))

		clean, serr := SanitizeInput(text)
		switch {
		case serr == ErrEmptyInput:
			if err == io.EOF {
				return "", io.EOF
			}
			continue
		case serr != nil:
			if werr := h.SystemOutput(ctx, serr.Error()); werr != nil {
				return "", werr
			}
			continue
		}
		return clean, nil
	}
}

func decodeLine(text string) string {
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		return s
	}
	var obj jsonInput
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &obj); err == nil {
			return obj.Message
		}
	}
	return text
}

func (h *JSONHandler) Output(ctx context.Context, msg domain.Message) error {
	return h.Encoder.Encode(msg)
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(systemLine{System: msg})
}
