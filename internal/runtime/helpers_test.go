package runtime_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/bookflow/internal/runtime"
	"github.com/aretw0/bookflow/pkg/adapters/memory"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/nlu"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// scriptedClassifier answers from a fixed table keyed by lower-cased text.
type scriptedClassifier struct {
	mu     sync.Mutex
	script map[string]ports.Classification
	hints  []domain.Intent
	err    error
}

func newClassifier(script map[string]ports.Classification) *scriptedClassifier {
	return &scriptedClassifier{script: script}
}

func (c *scriptedClassifier) Classify(_ context.Context, text string, hint domain.Intent) (ports.Classification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hints = append(c.hints, hint)
	if c.err != nil {
		return ports.Classification{}, c.err
	}
	if res, ok := c.script[strings.ToLower(text)]; ok {
		return res, nil
	}
	return ports.Classification{Intent: domain.IntentUnknown}, nil
}

func (c *scriptedClassifier) lastHint() domain.Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hints[len(c.hints)-1]
}

// flakyStore wraps the memory catalog with switchable read and write failures.
type flakyStore struct {
	*memory.Catalog
	mu        sync.Mutex
	failRead  bool
	failWrite bool
	commits   int
}

var errStoreDown = errors.New("store unavailable")

func (s *flakyStore) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	fail := s.failRead
	s.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return s.Catalog.GetCart(ctx, userID)
}

func (s *flakyStore) Commit(ctx context.Context, userID string, muts []domain.Mutation) (domain.Receipt, error) {
	s.mu.Lock()
	fail := s.failWrite
	s.commits++
	s.mu.Unlock()
	if fail {
		return domain.Receipt{}, errStoreDown
	}
	return s.Catalog.Commit(ctx, userID, muts)
}

func newStore(t *testing.T) *flakyStore {
	t.Helper()
	cat := memory.NewCatalog()
	require.NoError(t, cat.Seed(context.Background(), ports.ContractBooks))
	return &flakyStore{Catalog: cat}
}

// bookstoreScript covers the messages used across the engine tests.
func bookstoreScript() map[string]ports.Classification {
	return map[string]ports.Classification{
		"busca austen": {Intent: domain.IntentSearch, Slots: map[string]any{"query": "austen"}},
		"añade dune":   {Intent: domain.IntentAddToCart, Slots: map[string]any{"book_reference": "Dune"}},
		"añade 2 dune": {Intent: domain.IntentAddToCart, Slots: map[string]any{"book_reference": "Dune", "quantity": 2}},
		"añade emma":   {Intent: domain.IntentAddToCart, Slots: map[string]any{"book_reference": "Emma", "quantity": "1"}},
		"x2":           {Intent: domain.IntentUnknown, Slots: map[string]any{"quantity": "2"}},
		"quita dune":   {Intent: domain.IntentRemoveFromCart, Slots: map[string]any{"book_reference": "Dune"}},
		"mi carrito":   {Intent: domain.IntentViewCart},
		"comprar":      {Intent: domain.IntentCheckout},
		"pagar":        {Intent: domain.IntentPay},
		"pagar 1":      {Intent: domain.IntentPay, Slots: map[string]any{"order_id": 1}},
		"sí, confirmo": {Intent: domain.IntentUnknown, Slots: map[string]any{"confirmation": true}},
		"no":           {Intent: domain.IntentUnknown, Slots: map[string]any{"confirmation": false}},
		"cancela 1":    {Intent: domain.IntentCancelOrder, Slots: map[string]any{"order_id": "1"}},
		"estado":       {Intent: domain.IntentStatus},
		"hola":         {Intent: domain.IntentUnknown},
	}
}

type harness struct {
	engine     *runtime.Engine
	store      *flakyStore
	classifier *scriptedClassifier
	sess       *domain.Session
}

func newHarness(t *testing.T, opts ...runtime.EngineOption) *harness {
	t.Helper()
	store := newStore(t)
	cls := newClassifier(bookstoreScript())
	return &harness{
		engine:     runtime.NewEngine(cls, store, opts...),
		store:      store,
		classifier: cls,
		sess:       domain.NewSession("u1", time.Now()),
	}
}

func (h *harness) say(t *testing.T, text string) domain.Message {
	t.Helper()
	msg, err := h.engine.Turn(context.Background(), h.sess, text)
	require.NoError(t, err)
	return msg
}

// newRuleHarness drives the engine with the rule classifier instead of a
// script, and fills add_to_cart quantities the way the facade does.
func newRuleHarness(t *testing.T) *harness {
	t.Helper()
	store := newStore(t)
	return &harness{
		engine: runtime.NewEngine(nlu.New(), store,
			runtime.WithValidator(runtime.NewValidator(runtime.WithDefaultQuantity(1)))),
		store: store,
		sess:  domain.NewSession("u1", time.Now()),
	}
}
