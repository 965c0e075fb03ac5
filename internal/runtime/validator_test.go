package runtime_test

import (
	"testing"

	"github.com/aretw0/bookflow/internal/runtime"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSlots_WeaklyTyped(t *testing.T) {
	slots, err := runtime.DecodeSlots(map[string]any{
		"book_reference": "Dune",
		"quantity":       "3",
		"order_id":       float64(12),
		"confirmation":   "true",
		"mood":           "happy",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune", *slots.BookReference)
	assert.Equal(t, 3, *slots.Quantity)
	assert.Equal(t, int64(12), *slots.OrderID)
	assert.True(t, *slots.Confirmation)
	assert.Nil(t, slots.Query)
}

func TestDecodeSlots_RejectsGarbage(t *testing.T) {
	_, err := runtime.DecodeSlots(map[string]any{"quantity": "many"})
	assert.Error(t, err)
}

func TestValidator_Missing(t *testing.T) {
	v := runtime.NewValidator()

	tests := []struct {
		name    string
		intent  domain.Intent
		slots   domain.Slots
		missing []domain.Field
	}{
		{"search without query", domain.IntentSearch, domain.Slots{}, []domain.Field{domain.FieldQuery}},
		{"add without anything", domain.IntentAddToCart, domain.Slots{}, []domain.Field{domain.FieldBookReference, domain.FieldQuantity}},
		{"add with zero quantity", domain.IntentAddToCart, domain.Slots{BookReference: ptr("Dune"), Quantity: ptr(0)}, []domain.Field{domain.FieldQuantity}},
		{"add complete by id", domain.IntentAddToCart, domain.Slots{BookID: ptr(int64(1)), Quantity: ptr(1)}, nil},
		{"pay needs order", domain.IntentPay, domain.Slots{Confirmation: ptr(true)}, []domain.Field{domain.FieldOrderID}},
		{"pay without confirmation is valid", domain.IntentPay, domain.Slots{OrderID: ptr(int64(1))}, nil},
		{"status needs nothing", domain.IntentStatus, domain.Slots{}, nil},
		{"details need a book", domain.IntentBookDetails, domain.Slots{}, []domain.Field{domain.FieldBookReference}},
		{"stock needs a book", domain.IntentCheckStock, domain.Slots{Quantity: ptr(2)}, []domain.Field{domain.FieldBookReference}},
		{"recommend needs nothing", domain.IntentRecommend, domain.Slots{}, nil},
		{"unknown intent", domain.IntentUnknown, domain.Slots{Quantity: ptr(1)}, []domain.Field{domain.FieldIntent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, v.Missing(tt.intent, tt.slots))
		})
	}
}

func TestValidator_BuildsTypedRequests(t *testing.T) {
	v := runtime.NewValidator()

	req, missing := v.Validate(domain.IntentAddToCart, domain.Slots{BookReference: ptr("Dune"), Quantity: ptr(2)})
	require.Empty(t, missing)
	assert.Equal(t, domain.AddToCartRequest{Book: domain.BookRef{Title: "Dune"}, Quantity: 2}, req)

	req, missing = v.Validate(domain.IntentPay, domain.Slots{OrderID: ptr(int64(4))})
	require.Empty(t, missing)
	assert.Equal(t, domain.PayRequest{OrderID: 4}, req)

	req, missing = v.Validate(domain.IntentStatus, domain.Slots{})
	require.Empty(t, missing)
	assert.Equal(t, domain.StatusRequest{}, req)

	req, missing = v.Validate(domain.IntentCheckStock, domain.Slots{BookID: ptr(int64(3))})
	require.Empty(t, missing)
	assert.Equal(t, domain.CheckStockRequest{Book: domain.BookRef{ID: 3}}, req)

	req, missing = v.Validate(domain.IntentRecommend, domain.Slots{Query: ptr("classic")})
	require.Empty(t, missing)
	assert.Equal(t, domain.RecommendRequest{Genre: "classic"}, req)

	req, missing = v.Validate(domain.IntentCancelOrder, domain.Slots{})
	assert.Nil(t, req)
	assert.Equal(t, []domain.Field{domain.FieldOrderID}, missing)
}

func TestValidator_DefaultQuantity(t *testing.T) {
	v := runtime.NewValidator(runtime.WithDefaultQuantity(1))

	req, missing := v.Validate(domain.IntentAddToCart, domain.Slots{BookReference: ptr("Dune")})
	require.Empty(t, missing)
	assert.Equal(t, 1, req.(domain.AddToCartRequest).Quantity)

	_, missing = v.Validate(domain.IntentUpdateCart, domain.Slots{BookReference: ptr("Dune")})
	assert.Equal(t, []domain.Field{domain.FieldQuantity}, missing, "updates never assume a quantity")
}
