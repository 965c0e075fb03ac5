package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
	"golang.org/x/term"
)

// TextHandler implements the line-oriented chat interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Prompt   string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithPrompt overrides the input prompt. An empty prompt disables it.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
// The prompt is only shown when r is a terminal.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	if isTerminal(r) {
		h.Prompt = "> "
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour ctx cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Input blocks until a non-empty, sanitized line arrives.
// Invalid lines are reported and skipped.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			if h.Prompt != "" {
				fmt.Fprint(h.Writer, h.Prompt)
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(res.text)
			if err == ErrEmptyInput {
				continue
			}
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Inténtalo de nuevo.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) Output(ctx context.Context, msg domain.Message) error {
	text := msg.Text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			text = rendered
		}
	}
	if _, err := fmt.Fprintln(h.Writer, strings.TrimSpace(text)); err != nil {
		return err
	}
	for _, a := range msg.Attachments {
		writeAttachment(h.Writer, a)
	}
	return nil
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[Sistema] %s\n", msg)
	return err
}

func writeAttachment(w io.Writer, a domain.Attachment) {
	switch a.Kind {
	case domain.AttachmentBook:
		if a.Book == nil {
			return
		}
		fmt.Fprintf(w, "  [libro %d] %s, de %s. %s (stock %d)\n",
			a.Book.ID, a.Book.Title, a.Book.Author, a.Book.Price, a.Book.Stock)
	case domain.AttachmentCart:
		if a.Cart == nil {
			return
		}
		for _, l := range a.Cart.Lines {
			fmt.Fprintf(w, "  [carrito] %d x %s = %s\n", l.Quantity, l.Title, l.Subtotal())
		}
		fmt.Fprintf(w, "  [carrito] total %s\n", a.Cart.Total)
	case domain.AttachmentOrder:
		if a.Order == nil {
			return
		}
		fmt.Fprintf(w, "  [pedido #%d] %s, total %s\n", a.Order.ID, a.Order.Status, a.Order.Total)
	}
}
