package runtime

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/google/uuid"
)

const (
	// DefaultGenerateTimeout bounds a call to the text generator.
	DefaultGenerateTimeout = 8 * time.Second

	// DefaultHistoryTail is how many history entries a generator sees.
	DefaultHistoryTail = 6
)

// Builder produces the assistant reply of a turn. It only reads the result it
// is given, so building twice yields equivalent messages and no side effects.
type Builder struct {
	generator   ports.TextGenerator
	timeout     time.Duration
	historyTail int
	logger      *slog.Logger
	now         func() time.Time
}

// NewBuilder creates a Builder. generator may be nil.
func NewBuilder(generator ports.TextGenerator, timeout time.Duration, historyTail int, logger *slog.Logger) *Builder {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	if historyTail <= 0 {
		historyTail = DefaultHistoryTail
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		generator:   generator,
		timeout:     timeout,
		historyTail: historyTail,
		logger:      logger,
		now:         time.Now,
	}
}

// Clarify asks for the missing fields of intent.
func (b *Builder) Clarify(ctx context.Context, turn uint64, intent domain.Intent, missing []domain.Field, history []domain.Message) domain.Message {
	draft := ClarifyText(intent, missing)
	text := b.generate(ctx, ports.GenerationRequest{
		Intent:  intent,
		Missing: missing,
		Draft:   draft,
		History: tail(history, b.historyTail),
	})
	return b.message(turn, intent, text, nil)
}

// Build renders result. Only successful read-only results go through the
// generator; anything that changed or failed to change state, and every
// confirmation prompt, uses the fixed wording.
func (b *Builder) Build(ctx context.Context, turn uint64, result domain.ActionResult, history []domain.Message) domain.Message {
	text := ResultText(result)
	if result.Succeeded() && !result.Intent.Mutating() {
		r := result
		text = b.generate(ctx, ports.GenerationRequest{
			Intent:  result.Intent,
			Result:  &r,
			Draft:   text,
			History: tail(history, b.historyTail),
		})
	}
	return b.message(turn, result.Intent, text, attachments(result))
}

// Apology is the reply to a turn aborted by an internal error.
func (b *Builder) Apology(turn uint64) domain.Message {
	return b.message(turn, "", apologyText, nil)
}

func (b *Builder) generate(ctx context.Context, req ports.GenerationRequest) string {
	if b.generator == nil {
		return req.Draft
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	text, err := b.generator.Generate(ctx, req)
	if err != nil {
		b.logger.Warn("Text generation failed, using template", "intent", req.Intent, "err", err)
		return req.Draft
	}
	if strings.TrimSpace(text) == "" {
		return req.Draft
	}
	return strings.TrimSpace(text)
}

func (b *Builder) message(turn uint64, intent domain.Intent, text string, att []domain.Attachment) domain.Message {
	return domain.Message{
		ID:          uuid.NewString(),
		Role:        domain.RoleAssistant,
		Text:        text,
		Attachments: att,
		Intent:      intent,
		Turn:        turn,
		CreatedAt:   b.now(),
	}
}

func attachments(r domain.ActionResult) []domain.Attachment {
	p := r.Payload
	var out []domain.Attachment
	for _, book := range p.Books {
		card := domain.CardFor(book)
		out = append(out, domain.Attachment{Kind: domain.AttachmentBook, Book: &card})
	}
	if len(p.Books) == 0 && p.Book != nil && r.Succeeded() {
		card := domain.CardFor(*p.Book)
		out = append(out, domain.Attachment{Kind: domain.AttachmentBook, Book: &card})
	}
	if p.Cart != nil && r.Succeeded() {
		out = append(out, domain.Attachment{Kind: domain.AttachmentCart, Cart: p.Cart.Clone()})
	}
	if p.Order != nil {
		order := *p.Order
		order.Lines = append([]domain.OrderLine(nil), p.Order.Lines...)
		out = append(out, domain.Attachment{Kind: domain.AttachmentOrder, Order: &order})
	}
	return out
}

func tail(history []domain.Message, n int) []domain.Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
