package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/bookflow/internal/logging"
)

// ErrMailboxClosed is returned by Submit after Close.
var ErrMailboxClosed = errors.New("mailbox closed")

type queue struct {
	jobs []func()
}

// Mailbox runs jobs in arrival order per key, with one goroutine per busy key.
// Keys with nothing queued hold no goroutine.
type Mailbox struct {
	mu     sync.Mutex
	queues map[string]*queue
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewMailbox creates an empty mailbox.
func NewMailbox(logger *slog.Logger) *Mailbox {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mailbox{
		queues: make(map[string]*queue),
		logger: logger,
	}
}

// Submit enqueues job behind every job already queued for key.
func (m *Mailbox) Submit(key string, job func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMailboxClosed
	}
	if q, ok := m.queues[key]; ok {
		q.jobs = append(q.jobs, job)
		return nil
	}
	q := &queue{jobs: []func(){job}}
	m.queues[key] = q
	m.wg.Add(1)
	go m.drain(key, q)
	return nil
}

func (m *Mailbox) drain(key string, q *queue) {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		if len(q.jobs) == 0 {
			delete(m.queues, key)
			m.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		m.mu.Unlock()

		m.run(key, job)
	}
}

func (m *Mailbox) run(key string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Mailbox job panicked", "key", key, "panic", r)
		}
	}()
	job()
}

// Pending returns the number of queued jobs for key, excluding a running one.
func (m *Mailbox) Pending(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[key]; ok {
		return len(q.jobs)
	}
	return 0
}

// Close rejects new jobs and waits for queued ones to finish.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
}
