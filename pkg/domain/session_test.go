package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_ParkAndFinish(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("u1", now)
	assert.Equal(t, StateValidateInput, s.State)

	s.Park(IntentAddToCart, Slots{BookReference: ptr("Dune")}, []Field{FieldQuantity})
	assert.Equal(t, StateAskInput, s.State)
	assert.Equal(t, IntentAddToCart, s.PendingIntent)

	s.Resume = &PendingAction{Intent: IntentPay}
	s.Finish()
	assert.Equal(t, StateDone, s.State)
	assert.True(t, s.Slots.Empty())
	assert.Empty(t, s.PendingIntent)
	assert.NotNil(t, s.Resume, "resume survives DONE")

	s.Reset()
	assert.Equal(t, StateValidateInput, s.State)
	assert.Nil(t, s.Resume)
}

func TestSession_AppendKeepsBoundedHistory(t *testing.T) {
	s := NewSession("u1", time.Now())
	for i := 0; i < 5; i++ {
		s.Append(Message{Turn: uint64(i)}, 3)
	}
	assert.Len(t, s.History, 3)
	assert.Equal(t, uint64(2), s.History[0].Turn)
	assert.Len(t, s.Tail(2), 2)
	assert.Len(t, s.Tail(10), 3)
}

func TestSession_Idle(t *testing.T) {
	now := time.Now()
	s := NewSession("u1", now.Add(-time.Hour))
	assert.True(t, s.Idle(now, 30*time.Minute))
	assert.False(t, s.Idle(now, 2*time.Hour))
	assert.False(t, s.Idle(now, 0))
}

func TestSession_SnapshotIsIndependent(t *testing.T) {
	s := NewSession("u1", time.Now())
	s.Append(Message{Text: "hola"}, 0)
	s.Resume = &PendingAction{Intent: IntentPay}

	snap := s.Snapshot()
	snap.History[0].Text = "changed"
	snap.Resume.Intent = IntentCheckout

	assert.Equal(t, "hola", s.History[0].Text)
	assert.Equal(t, IntentPay, s.Resume.Intent)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnStateEnter: func(_ context.Context, _ *StateEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{OnStateEnter: func(_ context.Context, _ *StateEvent) { calls = append(calls, "b") }}

	merged := a.Merge(b)
	merged.OnStateEnter(context.Background(), &StateEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, a.Merge(LifecycleHooks{}).OnTurnComplete)
}
