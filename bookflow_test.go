package bookflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/bookflow"
	"github.com/aretw0/bookflow/pkg/adapters/memory"
	"github.com/aretw0/bookflow/pkg/catalog"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSessions struct {
	*memory.Store
}

func (brokenSessions) Save(context.Context, string, *domain.Session) error {
	return errors.New("disk full")
}

func seeded(t *testing.T) *memory.Catalog {
	t.Helper()
	c := memory.NewCatalog()
	require.NoError(t, c.Seed(context.Background(), catalog.Default()))
	return c
}

func TestHandleTurn_RejectsBadInput(t *testing.T) {
	eng, err := bookflow.New(bookflow.WithMaxInputSize(16))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.HandleTurn(ctx, "", "hola")
	assert.ErrorIs(t, err, bookflow.ErrMissingUserID)

	_, err = eng.HandleTurn(ctx, "ana", strings.Repeat("a", 17))
	assert.ErrorIs(t, err, runner.ErrInputTooLarge)

	_, err = eng.HandleTurn(ctx, "ana", "  \x00 ")
	assert.ErrorIs(t, err, runner.ErrEmptyInput)

	_, err = eng.Session(ctx, "ana")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "rejected input never touches the session")
}

func TestHandleTurn_ParksAndResumes(t *testing.T) {
	eng, err := bookflow.New(bookflow.WithDefaultQuantity(0))
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := eng.HandleTurn(ctx, "ana", "añade Dune")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "cuántas unidades")

	sess, err := eng.Session(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAskInput, sess.State)
	assert.Len(t, sess.History, 2)

	reply, err = eng.HandleTurn(ctx, "ana", "x3")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentAddToCart, reply.Intent)

	cart, err := eng.Store().GetCart(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)

	sess, err = eng.Session(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, sess.State)
}

func TestHandleTurn_DefaultQuantity(t *testing.T) {
	eng, err := bookflow.New()
	require.NoError(t, err)

	reply, err := eng.HandleTurn(context.Background(), "ana", "añade Dune")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "×1")

	eng, err = bookflow.New(bookflow.WithDefaultQuantity(3))
	require.NoError(t, err)

	reply, err = eng.HandleTurn(context.Background(), "ana", "añade Dune")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "×3")
}

func TestHandleTurn_SaveFailureStillReplies(t *testing.T) {
	store := seeded(t)
	eng, err := bookflow.New(
		bookflow.WithStore(store),
		bookflow.WithSessionStore(brokenSessions{memory.NewStore()}),
	)
	require.NoError(t, err)

	reply, err := eng.HandleTurn(context.Background(), "ana", "Añade 2 copias de Dune")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Dune")

	cart, err := store.GetCart(context.Background(), "ana")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1, "the commit stands even though the snapshot was lost")
}

func TestHandleTurn_AuditsThroughStore(t *testing.T) {
	store := seeded(t)
	eng, err := bookflow.New(bookflow.WithStore(store))
	require.NoError(t, err)

	_, err = eng.HandleTurn(context.Background(), "ana", "busca Dune")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(store.Records()) == 1 }, time.Second, 10*time.Millisecond)
	rec := store.Records()[0]
	assert.Equal(t, "ana", rec.UserID)
	assert.Equal(t, domain.IntentSearch, rec.Intent)
	assert.Equal(t, domain.StateDone, rec.Trace[len(rec.Trace)-1])
}

func TestHandleTurn_HooksAreMerged(t *testing.T) {
	var mu sync.Mutex
	var a, b int
	eng, err := bookflow.New(
		bookflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnTurnComplete: func(context.Context, *domain.TurnEvent) { mu.Lock(); a++; mu.Unlock() },
		}),
		bookflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnTurnComplete: func(context.Context, *domain.TurnEvent) { mu.Lock(); b++; mu.Unlock() },
		}),
	)
	require.NoError(t, err)

	_, err = eng.HandleTurn(context.Background(), "ana", "mi carrito")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestHandleTurn_UsersRunInParallel(t *testing.T) {
	eng, err := bookflow.New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, user := range []string{"ana", "luis", "marta", "pablo"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := eng.HandleTurn(context.Background(), user, "Añade 1 copia de Dune")
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	for _, user := range []string{"ana", "luis", "marta", "pablo"} {
		cart, err := eng.Store().GetCart(context.Background(), user)
		require.NoError(t, err)
		assert.Len(t, cart.Lines, 1, user)
	}
}

func TestResetSession(t *testing.T) {
	eng, err := bookflow.New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.HandleTurn(ctx, "ana", "añade Dune")
	require.NoError(t, err)
	require.NoError(t, eng.ResetSession(ctx, "ana"))

	_, err = eng.Session(ctx, "ana")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, eng.Graph().Validate())
}

func TestHandleTurn_ChatterWhileAskingForBook(t *testing.T) {
	eng, err := bookflow.New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.HandleTurn(ctx, "ana", "quiero agregar algo al carrito")
	require.NoError(t, err)

	for _, chatter := range []string{"Hoy hace calor", "Qué tal", "Estoy pensando"} {
		reply, err := eng.HandleTurn(ctx, "ana", chatter)
		require.NoError(t, err)
		assert.Contains(t, reply.Text, "qué libro", chatter)

		sess, err := eng.Session(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, domain.StateAskInput, sess.State, chatter)
		assert.Equal(t, domain.IntentAddToCart, sess.PendingIntent, chatter)
		assert.Equal(t, []domain.Field{domain.FieldBookReference}, sess.Missing, chatter)
	}

	reply, err := eng.HandleTurn(ctx, "ana", "El Hobbit")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentAddToCart, reply.Intent)

	cart, err := eng.Store().GetCart(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "El Hobbit", cart.Lines[0].Title)
}

func TestHandleTurn_BookQuestions(t *testing.T) {
	eng, err := bookflow.New()
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := eng.HandleTurn(ctx, "ana", "cuánto cuesta Dune")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentBookDetails, reply.Intent)
	assert.Contains(t, reply.Text, "Frank Herbert")
	assert.Contains(t, reply.Text, "Arrakis", "details include the synopsis")
	require.Len(t, reply.Attachments, 1)
	assert.Equal(t, domain.Money(1599), reply.Attachments[0].Book.Price)

	reply, err = eng.HandleTurn(ctx, "ana", "¿hay stock de Dune?")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCheckStock, reply.Intent)
	assert.Contains(t, reply.Text, "quedan 25 unidades")

	reply, err = eng.HandleTurn(ctx, "ana", "recomiéndame algo de fantasía")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRecommend, reply.Intent)
	require.Len(t, reply.Attachments, 2)
	assert.Equal(t, "El Hobbit", reply.Attachments[0].Book.Title)
	assert.Equal(t, "El Señor de los Anillos", reply.Attachments[1].Book.Title)

	reply, err = eng.HandleTurn(ctx, "ana", "recomiéndame un libro")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRecommend, reply.Intent)
	assert.NotEmpty(t, reply.Attachments)

	cart, err := eng.Store().GetCart(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}
