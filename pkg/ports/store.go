package ports

import (
	"context"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
)

// SessionStore persists session snapshots keyed by user id.
type SessionStore interface {
	// Save persists the session for a given user.
	Save(ctx context.Context, userID string, session *domain.Session) error

	// Load retrieves the session for a given user.
	// Returns domain.ErrSessionNotFound if the user has none.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a given user.
	Delete(ctx context.Context, userID string) error

	// List returns the ids of stored sessions.
	List(ctx context.Context) ([]string, error)
}

// Sweeper is implemented by stores that need explicit eviction of idle sessions.
// Stores with native expiry (Redis) do not implement it.
type Sweeper interface {
	Sweep(ctx context.Context, idleSince time.Time) (int, error)
}
