package middleware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
)

// Mask replaces every redacted span.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks text matching the
// patterns (card numbers, emails, phone numbers) in message history and the
// search query before a snapshot reaches the wrapped store.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, userID string, session *domain.Session) error {
	// The engine keeps using the original; only the stored copy is masked.
	cloned := session.Snapshot()
	for i := range cloned.History {
		cloned.History[i].Text = m.mask(cloned.History[i].Text)
	}
	if cloned.Slots.Query != nil {
		q := m.mask(*cloned.Slots.Query)
		cloned.Slots.Query = &q
	}
	if cloned.LastResult != nil {
		last := *cloned.LastResult
		last.Payload.Query = m.mask(last.Payload.Query)
		last.Reason = m.mask(last.Reason)
		last.Prompt = m.mask(last.Prompt)
		cloned.LastResult = &last
	}
	return m.next.Save(ctx, userID, cloned)
}

func (m *redactionMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *redactionMiddleware) Load(ctx context.Context, userID string) (*domain.Session, error) {
	return m.next.Load(ctx, userID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, userID string) error {
	return m.next.Delete(ctx, userID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Sweep forwards to the wrapped store when it needs explicit eviction.
func (m *redactionMiddleware) Sweep(ctx context.Context, idleSince time.Time) (int, error) {
	if s, ok := m.next.(ports.Sweeper); ok {
		return s.Sweep(ctx, idleSince)
	}
	return 0, nil
}
