package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
)

const (
	// DefaultTTL is how long a session may sit idle before in-flight work is dropped.
	DefaultTTL = 30 * time.Minute

	// DefaultHistoryLimit caps the stored conversation tail.
	DefaultHistoryLimit = 50

	defaultLockTTL = 30 * time.Second
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring turns for one user run one at a time.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker       ports.DistributedLocker
	lockTTL      time.Duration
	ttl          time.Duration
	historyLimit int
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock is held if the holder dies.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTTL sets the idle expiry. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithHistoryLimit caps the history kept per session. Zero keeps everything.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		m.historyLimit = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager over store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		locks:        make(map[string]*lockEntry),
		lockTTL:      defaultLockTTL,
		ttl:          DefaultTTL,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// WithLock executes fn while holding the lock for userID.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's context may already be cancelled; release regardless.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"user_id", userID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Run loads (or creates) the user's session, applies fn and saves the result,
// all under the user's lock. An idle session with unfinished work is reset
// before fn sees it. When fn returns an error nothing is saved.
func (m *Manager) Run(ctx context.Context, userID string, fn func(context.Context, *domain.Session) error) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		now := m.now()
		sess, err := m.store.Load(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			sess = domain.NewSession(userID, now)
		case err != nil:
			return fmt.Errorf("failed to load session: %w", err)
		case sess.Idle(now, m.ttl) && m.unfinished(sess):
			m.logger.Info("Session expired, dropping in-flight work",
				"user_id", userID,
				"state", sess.State,
				"pending_intent", sess.PendingIntent,
				"idle", now.Sub(sess.UpdatedAt).Round(time.Second),
			)
			sess.Reset()
		}

		if err := fn(ctx, sess); err != nil {
			return err
		}

		if m.historyLimit > 0 && len(sess.History) > m.historyLimit {
			sess.History = append([]domain.Message(nil), sess.History[len(sess.History)-m.historyLimit:]...)
		}
		sess.UpdatedAt = m.now()
		// Mutations may already be committed; the snapshot must be written even if the caller left.
		if err := m.store.Save(context.WithoutCancel(ctx), userID, sess); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

func (m *Manager) unfinished(s *domain.Session) bool {
	return s.State == domain.StateAskInput || s.Resume != nil || !s.Slots.Empty()
}

// Get returns a snapshot of the user's session.
func (m *Manager) Get(ctx context.Context, userID string) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		sess, err = m.store.Load(ctx, userID)
		return err
	})
	return sess, err
}

// Delete removes the user's session.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.store.Delete(ctx, userID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Sweep evicts idle sessions from stores without native expiry.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	sweeper, ok := m.store.(ports.Sweeper)
	if !ok || m.ttl <= 0 {
		return 0, nil
	}
	return sweeper.Sweep(ctx, m.now().Add(-m.ttl))
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				m.logger.Warn("Session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				m.logger.Debug("Evicted idle sessions", "count", n)
			}
		}
	}
}
