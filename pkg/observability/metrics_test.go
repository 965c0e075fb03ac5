package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_HooksFeedCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	for _, s := range []domain.State{domain.StateValidateInput, domain.StateLoadContext, domain.StateValidateInput} {
		hooks.OnStateEnter(ctx, &domain.StateEvent{State: s})
	}
	hooks.OnTurnComplete(ctx, &domain.TurnEvent{Intent: domain.IntentSearch, Outcome: domain.OutcomeSuccess, Duration: 20 * time.Millisecond})
	hooks.OnTurnComplete(ctx, &domain.TurnEvent{Outcome: domain.OutcomeAborted})

	expected := `
# HELP bookflow_turns_total Total number of conversation turns by intent and outcome
# TYPE bookflow_turns_total counter
bookflow_turns_total{intent="search",outcome="success"} 1
bookflow_turns_total{intent="unknown",outcome="aborted"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bookflow_turns_total"))

	expectedVisits := `
# HELP bookflow_state_visits_total Total number of times a turn entered each graph state
# TYPE bookflow_state_visits_total counter
bookflow_state_visits_total{state="LOAD_CONTEXT"} 1
bookflow_state_visits_total{state="VALIDATE_INPUT"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expectedVisits), "bookflow_state_visits_total"))

	count, err := testutil.GatherAndCount(reg, "bookflow_turn_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_ActiveSessionsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	n := 3.0
	m.TrackActiveSessions(func() float64 { return n })

	expected := `
# HELP bookflow_active_sessions Number of sessions currently held by the session store
# TYPE bookflow_active_sessions gauge
bookflow_active_sessions 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bookflow_active_sessions"))
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, slog.LevelDebug, logging.FormatJSON)
	hooks := observability.LoggingHooks(logger)

	hooks.OnStateEnter(context.Background(), &domain.StateEvent{UserID: "ana", State: domain.StatePersist})
	hooks.OnTurnComplete(context.Background(), &domain.TurnEvent{UserID: "ana", Intent: domain.IntentPay, Outcome: domain.OutcomeConfirmation})

	out := buf.String()
	assert.Contains(t, out, `"msg":"state_enter"`)
	assert.Contains(t, out, `"state":"PERSIST"`)
	assert.Contains(t, out, `"outcome":"needs_confirmation"`)
}
