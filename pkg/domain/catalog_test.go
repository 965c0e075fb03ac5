package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$0.00", Money(0).String())
	assert.Equal(t, "$12.50", Money(1250).String())
	assert.Equal(t, "-$0.05", Money(-5).String())
}

func TestCart_SetRecomputesTotal(t *testing.T) {
	dune := Book{ID: 1, Title: "Dune", Price: 1500, Stock: 5}
	emma := Book{ID: 2, Title: "Emma", Price: 999, Stock: 3}

	cart := &Cart{UserID: "u1"}
	cart.Set(dune, 2)
	cart.Set(emma, 1)
	assert.Equal(t, Money(3999), cart.Total)

	cart.Set(dune, 1)
	assert.Equal(t, Money(2499), cart.Total)

	line, ok := cart.Line(1)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)

	cart.Set(dune, 0)
	assert.Len(t, cart.Lines, 1)
	assert.Equal(t, Money(999), cart.Total)
}

func TestCart_TotalIsSumOfSubtotals(t *testing.T) {
	cart := &Cart{Lines: []CartLine{
		{BookID: 1, Quantity: 3, UnitPrice: 333},
		{BookID: 2, Quantity: 1, UnitPrice: 1},
	}}
	cart.Recompute()
	assert.Equal(t, Money(1000), cart.Total)
}

func TestSnapshot_FreezesPrices(t *testing.T) {
	cart := &Cart{Lines: []CartLine{{BookID: 1, Title: "Dune", Quantity: 2, UnitPrice: 1500}}}
	cart.Recompute()

	lines, total := Snapshot(cart)
	cart.Lines[0].UnitPrice = 9999

	require.Len(t, lines, 1)
	assert.Equal(t, Money(1500), lines[0].UnitPrice)
	assert.Equal(t, Money(3000), total)
}

func TestCart_CloneIsIndependent(t *testing.T) {
	cart := &Cart{Lines: []CartLine{{BookID: 1, Quantity: 1, UnitPrice: 10}}}
	clone := cart.Clone()
	clone.Lines[0].Quantity = 5
	assert.Equal(t, 1, cart.Lines[0].Quantity)

	var nilCart *Cart
	assert.Nil(t, nilCart.Clone())
	assert.True(t, nilCart.Empty())
}
