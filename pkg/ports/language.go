package ports

import (
	"context"

	"github.com/aretw0/bookflow/pkg/domain"
)

// Classification is what a Classifier extracts from one message.
// Slots is deliberately loose; the validator decodes it into domain.Slots.
type Classification struct {
	Intent     domain.Intent  `json:"intent"`
	Slots      map[string]any `json:"slots,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

// Classifier maps raw user text to an intent and slot values. hint is the
// intent being completed while the session waits at ASK_INPUT, or empty.
type Classifier interface {
	Classify(ctx context.Context, text string, hint domain.Intent) (Classification, error)
}

// GenerationRequest is the structured prompt handed to a TextGenerator.
type GenerationRequest struct {
	Intent  domain.Intent
	Result  *domain.ActionResult
	Missing []domain.Field
	// Draft is the templated reply; generators may rephrase but not contradict it.
	Draft   string
	History []domain.Message
}

// TextGenerator renders a natural-language reply.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
