package domain

import (
	"context"
	"time"
)

// StateEvent is emitted each time a turn enters a state.
type StateEvent struct {
	UserID    string    `json:"user_id"`
	Turn      uint64    `json:"turn"`
	State     State     `json:"state"`
	Via       Condition `json:"via,omitempty"`
	Intent    Intent    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnEvent is emitted once a turn has produced its reply.
type TurnEvent struct {
	UserID   string        `json:"user_id"`
	Turn     uint64        `json:"turn"`
	Intent   Intent        `json:"intent,omitempty"`
	Outcome  string        `json:"outcome"`
	Trace    []State       `json:"trace"`
	Duration time.Duration `json:"duration"`
}

// Turn outcomes reported in TurnEvent.Outcome.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeConfirmation = "needs_confirmation"
	OutcomeAskInput     = "ask_input"
	OutcomeAborted      = "aborted"
)

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStateEnter   func(context.Context, *StateEvent)
	OnTurnComplete func(context.Context, *TurnEvent)
}

// Merge returns hooks that call h and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStateEnter:   chain(h.OnStateEnter, other.OnStateEnter),
		OnTurnComplete: chain(h.OnTurnComplete, other.OnTurnComplete),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, ev T) {
		a(ctx, ev)
		b(ctx, ev)
	}
}
