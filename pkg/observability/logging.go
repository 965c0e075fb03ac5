package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/bookflow/pkg/domain"
)

// LoggingHooks logs state entries at debug level and completed turns at info.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_enter",
				"user_id", e.UserID,
				"turn", e.Turn,
				"state", e.State,
				"via", e.Via,
			)
		},
		OnTurnComplete: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn_complete",
				"user_id", e.UserID,
				"turn", e.Turn,
				"intent", e.Intent,
				"outcome", e.Outcome,
				"trace", e.Trace,
				"duration", e.Duration,
			)
		},
	}
}
