package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(userID, time.Now().UTC())
		qty := 2
		ref := "Dune"
		sess.Park(domain.IntentAddToCart, domain.Slots{BookReference: &ref, Quantity: &qty}, []domain.Field{domain.FieldQuantity})
		sess.Turn = 3
		sess.Append(domain.Message{ID: "m1", Role: domain.RoleUser, Text: "hola"}, 0)

		require.NoError(t, store.Save(ctx, userID, sess), "Save should not return error")

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.StateAskInput, loaded.State)
		assert.Equal(t, domain.IntentAddToCart, loaded.PendingIntent)
		require.NotNil(t, loaded.Slots.Quantity)
		assert.Equal(t, 2, *loaded.Slots.Quantity)
		assert.Equal(t, uint64(3), loaded.Turn)
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "hola", loaded.History[0].Text)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		loaded.Turn = 99

		again, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.NotEqual(t, uint64(99), again.Turn)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID, time.Now())))
		require.NoError(t, store.Delete(ctx, userID), "Delete should not return error")

		_, err := store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1, time.Now()))
		_ = store.Save(ctx, id2, domain.NewSession(id2, time.Now()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// ContractBooks is the catalog seeded by RunCatalogContract.
var ContractBooks = []domain.Book{
	{ID: 1, Title: "Dune", Author: "Frank Herbert", Genre: "science fiction", Price: 1500, Stock: 5},
	{ID: 2, Title: "Dune Messiah", Author: "Frank Herbert", Genre: "science fiction", Price: 1200, Stock: 1},
	{ID: 3, Title: "Emma", Author: "Jane Austen", Genre: "classic", Price: 999, Stock: 0},
	{ID: 4, Title: "Persuasion", Author: "Jane Austen", Genre: "classic", Price: 1100, Stock: 4},
}

// RunCatalogContract verifies a bookstore backend. The store must be empty.
func RunCatalogContract(t *testing.T, store interface {
	Store
	Seeder
}) {
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx, ContractBooks))

	t.Run("FindBooks by id", func(t *testing.T) {
		books, err := store.FindBooks(ctx, domain.BookRef{ID: 4})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Persuasion", books[0].Title)

		books, err = store.FindBooks(ctx, domain.BookRef{ID: 404})
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("FindBooks prefers exact title", func(t *testing.T) {
		books, err := store.FindBooks(ctx, domain.BookRef{Title: "dune"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, int64(1), books[0].ID)

		books, err = store.FindBooks(ctx, domain.BookRef{Title: "mess"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Dune Messiah", books[0].Title)

		books, err = store.FindBooks(ctx, domain.BookRef{Title: "zzz"})
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("SearchBooks matches author and genre", func(t *testing.T) {
		books, err := store.SearchBooks(ctx, "austen", 10)
		require.NoError(t, err)
		assert.Len(t, books, 2)

		books, err = store.SearchBooks(ctx, "science fiction", 1)
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})

	t.Run("SearchBooks with no query lists the catalog", func(t *testing.T) {
		books, err := store.SearchBooks(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, books, len(ContractBooks))
		assert.Equal(t, int64(1), books[0].ID)
	})

	t.Run("Empty cart", func(t *testing.T) {
		cart, err := store.GetCart(ctx, "nobody")
		require.NoError(t, err)
		assert.True(t, cart.Empty())
		assert.Equal(t, domain.Money(0), cart.Total)
	})

	t.Run("Cart mutations", func(t *testing.T) {
		_, err := store.Commit(ctx, "alice", []domain.Mutation{
			domain.UpsertCartLine{UserID: "alice", BookID: 1, Quantity: 2},
			domain.UpsertCartLine{UserID: "alice", BookID: 4, Quantity: 1},
		})
		require.NoError(t, err)

		cart, err := store.GetCart(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, cart.Lines, 2)
		assert.Equal(t, domain.Money(4100), cart.Total)

		_, err = store.Commit(ctx, "alice", []domain.Mutation{domain.RemoveCartLine{UserID: "alice", BookID: 4}})
		require.NoError(t, err)
		cart, err = store.GetCart(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, cart.Lines, 1)
		assert.Equal(t, domain.Money(3000), cart.Total)
	})

	t.Run("Commit is atomic", func(t *testing.T) {
		_, err := store.Commit(ctx, "alice", []domain.Mutation{
			domain.UpsertCartLine{UserID: "alice", BookID: 2, Quantity: 1},
			domain.CreateOrder{UserID: "alice", Lines: []domain.OrderLine{{BookID: 3, Title: "Emma", Quantity: 1, UnitPrice: 999}}, Total: 999},
		})
		require.ErrorIs(t, err, domain.ErrConflict)

		cart, err := store.GetCart(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, cart.Lines, 1, "first mutation must be rolled back")
	})

	var orderID int64
	t.Run("Checkout creates order", func(t *testing.T) {
		cart, err := store.GetCart(ctx, "alice")
		require.NoError(t, err)
		lines, total := domain.Snapshot(cart)

		receipt, err := store.Commit(ctx, "alice", []domain.Mutation{
			domain.CreateOrder{UserID: "alice", Lines: lines, Total: total},
		})
		require.NoError(t, err)
		require.NotZero(t, receipt.OrderID)
		orderID = receipt.OrderID

		order, err := store.GetOrder(ctx, "alice", orderID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCreated, order.Status)
		assert.Equal(t, domain.Money(3000), order.Total)
		require.Len(t, order.Lines, 1)
		assert.Equal(t, domain.Money(1500), order.Lines[0].UnitPrice)

		cart, err = store.GetCart(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, cart.Empty())

		books, err := store.FindBooks(ctx, domain.BookRef{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, books[0].Stock)
	})

	t.Run("Orders are scoped to their owner", func(t *testing.T) {
		_, err := store.GetOrder(ctx, "mallory", orderID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.LatestOrder(ctx, "mallory")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		latest, err := store.LatestOrder(ctx, "alice", domain.OrderCreated)
		require.NoError(t, err)
		assert.Equal(t, orderID, latest.ID)
	})

	t.Run("Status transitions are guarded", func(t *testing.T) {
		paid := domain.SetOrderStatus{UserID: "alice", OrderID: orderID, From: domain.OrderCreated, To: domain.OrderPaid, Payment: 3000}
		_, err := store.Commit(ctx, "alice", []domain.Mutation{paid})
		require.NoError(t, err)

		_, err = store.Commit(ctx, "alice", []domain.Mutation{paid})
		assert.ErrorIs(t, err, domain.ErrConflict)

		order, err := store.GetOrder(ctx, "alice", orderID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderPaid, order.Status)

		_, err = store.LatestOrder(ctx, "alice", domain.OrderCreated)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
