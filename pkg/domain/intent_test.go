package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestSlots_MergeOverridesOnlySetFields(t *testing.T) {
	base := Slots{BookReference: ptr("Dune"), Quantity: ptr(1)}
	merged := base.Merge(Slots{Quantity: ptr(2)})

	assert.Equal(t, "Dune", *merged.BookReference)
	assert.Equal(t, 2, *merged.Quantity)
	assert.Equal(t, 1, *base.Quantity)
}

func TestSlots_MergeReplacesBookReferenceAsAUnit(t *testing.T) {
	base := Slots{BookID: ptr(int64(7))}
	merged := base.Merge(Slots{BookReference: ptr("Emma")})

	assert.Nil(t, merged.BookID)
	assert.Equal(t, "Emma", *merged.BookReference)
}

func TestSlots_Has(t *testing.T) {
	s := Slots{BookID: ptr(int64(3)), Query: ptr("")}
	assert.True(t, s.Has(FieldBookReference))
	assert.False(t, s.Has(FieldQuery))
	assert.False(t, s.Has(FieldOrderID))
	assert.False(t, s.Has(FieldIntent))
}

func TestSlots_RestrictDropsForeignFields(t *testing.T) {
	s := Slots{OrderID: ptr(int64(5)), Quantity: ptr(2), Confirmation: ptr(true)}

	pay := s.Restrict(IntentPay)
	assert.NotNil(t, pay.OrderID)
	assert.NotNil(t, pay.Confirmation)
	assert.Nil(t, pay.Quantity)

	assert.True(t, s.Relevant(IntentCancelOrder))
	assert.False(t, s.Relevant(IntentSearch))
	assert.True(t, Slots{}.Restrict(IntentCheckout).Empty())
}

func TestIntent_Classification(t *testing.T) {
	for _, i := range Intents {
		_, ok := Schema[i]
		assert.True(t, ok, "intent %s has no slot schema", i)
	}
	assert.False(t, IntentUnknown.Known())
	assert.True(t, IntentPay.Mutating())
	assert.False(t, IntentSearch.Mutating())
	assert.False(t, IntentStatus.Mutating())
	for _, i := range []Intent{IntentBookDetails, IntentCheckStock, IntentRecommend} {
		assert.True(t, i.Known())
		assert.False(t, i.Mutating(), "%s only reads the catalog", i)
	}
}

func TestBookRef_String(t *testing.T) {
	assert.Equal(t, "#12", BookRef{ID: 12, Title: "ignored"}.String())
	assert.Equal(t, "Dune", BookRef{Title: "Dune"}.String())
}
