package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	err error
}

func (f fakeEngine) HandleTurn(ctx context.Context, userID, text string) (domain.Message, error) {
	if f.err != nil {
		return domain.Message{}, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return domain.Message{}, errors.New("expected a deadline")
	}
	return domain.Message{Role: domain.RoleAssistant, Text: userID + ": " + text}, nil
}

func TestHandle(t *testing.T) {
	tr := New(nil, fakeEngine{})

	resp := tr.Handle(context.Background(), Request{UserID: "ana", Message: "busca Dune"})
	require.NotNil(t, resp.Reply)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "ana: busca Dune", resp.Reply.Text)
}

func TestHandle_Error(t *testing.T) {
	tr := New(nil, fakeEngine{err: errors.New("input is empty")})

	resp := tr.Handle(context.Background(), Request{UserID: "ana"})
	assert.Nil(t, resp.Reply)
	assert.Equal(t, "input is empty", resp.Error)
}

func TestStart_RequiresConnection(t *testing.T) {
	tr := New(nil, fakeEngine{}, WithSubject("x.turn"), WithQueue("q"))
	assert.Error(t, tr.Start())
	assert.Equal(t, "x.turn", tr.subject)
	assert.NoError(t, tr.Close())
}
