package nlu_test

import (
	"context"
	"testing"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/nlu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleClassifier_Intents(t *testing.T) {
	c := nlu.New()
	tests := []struct {
		text   string
		intent domain.Intent
		slots  map[string]any
	}{
		{"Añade 2 copias de Dune", domain.IntentAddToCart, map[string]any{"book_reference": "Dune", "quantity": 2}},
		{"agrega \"El Gran Gatsby\" x3", domain.IntentAddToCart, map[string]any{"book_reference": "El Gran Gatsby", "quantity": 3}},
		{"añade Cien años de soledad al carrito", domain.IntentAddToCart, map[string]any{"book_reference": "Cien años de soledad"}},
		{"add two copies of Emma", domain.IntentAddToCart, map[string]any{"book_reference": "Emma", "quantity": 2}},
		{"¿Tienes libros de Jane Austen?", domain.IntentSearch, map[string]any{"query": "Jane Austen"}},
		{"busca novelas de ciencia ficción", domain.IntentSearch, map[string]any{"query": "ciencia ficción"}},
		{"cambia Dune a 3 unidades", domain.IntentUpdateCart, map[string]any{"book_reference": "Dune", "quantity": 3}},
		{"quita Dune de mi carrito", domain.IntentRemoveFromCart, map[string]any{"book_reference": "Dune"}},
		{"¿qué hay en mi carrito?", domain.IntentViewCart, nil},
		{"mi carrito", domain.IntentViewCart, nil},
		{"comprar", domain.IntentCheckout, nil},
		{"quiero finalizar la compra", domain.IntentCheckout, nil},
		{"pagar el pedido #3", domain.IntentPay, map[string]any{"order_id": int64(3)}},
		{"cancela el pedido 5", domain.IntentCancelOrder, map[string]any{"order_id": int64(5)}},
		{"¿Dónde está mi pedido?", domain.IntentStatus, nil},
		{"estado de la orden 12", domain.IntentStatus, map[string]any{"order_id": int64(12)}},
		{"detalles de Dune", domain.IntentBookDetails, map[string]any{"book_reference": "Dune"}},
		{"¿Cuánto cuesta El Hobbit?", domain.IntentBookDetails, map[string]any{"book_reference": "Hobbit"}},
		{"¿hay stock de Dune?", domain.IntentCheckStock, map[string]any{"book_reference": "Dune"}},
		{"¿Cuántos quedan de Neuromante?", domain.IntentCheckStock, map[string]any{"book_reference": "Neuromante"}},
		{"¿Está disponible Dune?", domain.IntentCheckStock, map[string]any{"book_reference": "Dune"}},
		{"recomiéndame algo de fantasía", domain.IntentRecommend, map[string]any{"query": "fantasía"}},
		{"¿me sugieres algo?", domain.IntentRecommend, nil},
		{"cómprame Dune si hay stock", domain.IntentAddToCart, map[string]any{"book_reference": "Dune"}},
		{"hola", domain.IntentUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res, err := c.Classify(context.Background(), tt.text, "")
			require.NoError(t, err)
			assert.Equal(t, tt.intent, res.Intent)
			assert.Equal(t, tt.slots, res.Slots)
		})
	}
}

func TestRuleClassifier_FollowUps(t *testing.T) {
	c := nlu.New()
	tests := []struct {
		name  string
		text  string
		hint  domain.Intent
		slots map[string]any
	}{
		{"times quantity", "x2", domain.IntentAddToCart, map[string]any{"quantity": 2}},
		{"bare quantity", "3", domain.IntentUpdateCart, map[string]any{"quantity": 3}},
		{"bare order id", "7", domain.IntentCancelOrder, map[string]any{"order_id": int64(7)}},
		{"capitalised title", "Dune", domain.IntentRemoveFromCart, map[string]any{"book_reference": "Dune"}},
		{"lowercase chatter", "no sé, algo bonito", domain.IntentAddToCart, nil},
		{"greeting", "Hola", domain.IntentAddToCart, nil},
		{"sentence case chatter", "Hoy hace calor", domain.IntentAddToCart, nil},
		{"small talk", "Qué tal", domain.IntentAddToCart, nil},
		{"thinking aloud", "Estoy pensando", domain.IntentAddToCart, nil},
		{"title later in the sentence", "Estoy pensando en Dune", domain.IntentAddToCart, map[string]any{"book_reference": "Dune"}},
		{"title with courtesy", "Dune por favor", domain.IntentAddToCart, map[string]any{"book_reference": "Dune"}},
		{"multi-word title", "El Hobbit", domain.IntentBookDetails, map[string]any{"book_reference": "El Hobbit"}},
		{"confirm", "Sí, confirmo", domain.IntentPay, map[string]any{"confirmation": true}},
		{"english yes", "yes", domain.IntentPay, map[string]any{"confirmation": true}},
		{"decline", "No", domain.IntentPay, map[string]any{"confirmation": false}},
		{"cancel answers payment", "cancelar", domain.IntentPay, map[string]any{"confirmation": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Classify(context.Background(), tt.text, tt.hint)
			require.NoError(t, err)
			assert.Equal(t, domain.IntentUnknown, res.Intent)
			assert.Equal(t, tt.slots, res.Slots)
		})
	}
}

func TestRuleClassifier_ConfirmationOnlyForPay(t *testing.T) {
	res, err := nlu.New().Classify(context.Background(), "sí, busca Dune", "")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSearch, res.Intent)
	assert.NotContains(t, res.Slots, "confirmation")
}

func TestRuleClassifier_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := nlu.New().Classify(ctx, "hola", "")
	assert.ErrorIs(t, err, context.Canceled)
}
