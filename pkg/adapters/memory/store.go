package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
)

const shardCount = 32

type shard struct {
	mu   sync.RWMutex
	data map[string]*domain.Session
}

// Store implements ports.SessionStore in memory.
// Sessions are spread over shards so unrelated users do not contend on one lock.
type Store struct {
	shards [shardCount]*shard
}

// NewStore creates a new in-memory session store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[string]*domain.Session)}
	}
	return s
}

func (s *Store) shard(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// Save persists a copy of the session.
func (s *Store) Save(ctx context.Context, userID string, session *domain.Session) error {
	copied := session.Snapshot()

	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.data[userID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate stored sessions by pointer.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	session, ok := sh.data[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, userID string) error {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.data, userID)
	return nil
}

// List returns stored user ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id := range sh.data {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()
	}
	return ids, nil
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.data)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep evicts sessions not updated since idleSince.
func (s *Store) Sweep(ctx context.Context, idleSince time.Time) (int, error) {
	evicted := 0
	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		sh.mu.Lock()
		for id, session := range sh.data {
			if session.UpdatedAt.Before(idleSince) {
				delete(sh.data, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted, nil
}
