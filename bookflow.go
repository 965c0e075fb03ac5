package bookflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	"github.com/aretw0/bookflow/internal/runtime"
	"github.com/aretw0/bookflow/pkg/adapters/memory"
	"github.com/aretw0/bookflow/pkg/catalog"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/graph"
	"github.com/aretw0/bookflow/pkg/nlu"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/aretw0/bookflow/pkg/runner"
	"github.com/aretw0/bookflow/pkg/session"
)

// ErrMissingUserID is returned when a turn arrives without a user id.
var ErrMissingUserID = errors.New("user id is required")

// Engine is the high-level entry point for the Bookflow library.
// It wraps the turn runtime and the session manager behind one call per message.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager
	store    ports.Store

	classifier      ports.Classifier
	generator       ports.TextGenerator
	generateTimeout time.Duration
	sessionStore    ports.SessionStore
	locker          ports.DistributedLocker
	audit           ports.AuditLog
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	now             func() time.Time

	sessionTTL      time.Duration
	ttlSet          bool
	historyLimit    int
	historySet      bool
	defaultQuantity int
	quantitySet     bool
	searchLimit     int
	maxInputSize    int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithClassifier replaces the rule-based classifier.
func WithClassifier(c ports.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithStore sets the bookstore backend. The default is an in-memory catalog
// seeded with the bundled books.
func WithStore(s ports.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithGenerator enables natural-language replies. A zero timeout uses the runtime default.
func WithGenerator(g ports.TextGenerator, timeout time.Duration) Option {
	return func(e *Engine) {
		e.generator = g
		e.generateTimeout = timeout
	}
}

// WithSessionStore sets where session snapshots live.
func WithSessionStore(s ports.SessionStore) Option {
	return func(e *Engine) {
		e.sessionStore = s
	}
}

// WithLocker enables cross-replica session locking.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithAuditLog records every turn. Stores that implement ports.AuditLog are
// used automatically unless this option is given.
func WithAuditLog(a ports.AuditLog) Option {
	return func(e *Engine) {
		e.audit = a
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSessionTTL sets the idle expiry of unfinished work. Zero disables it.
func WithSessionTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.sessionTTL = ttl
		e.ttlSet = true
	}
}

// WithHistoryLimit caps the stored history per session. Zero keeps everything.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.historyLimit = n
		e.historySet = true
	}
}

// WithDefaultQuantity sets the quantity add_to_cart uses when the user gives
// none. The default is 1; zero makes the engine ask instead.
// With zero, "añade Dune" parks at ASK_INPUT and asks how many copies.
func WithDefaultQuantity(n int) Option {
	return func(e *Engine) {
		e.defaultQuantity = n
		e.quantitySet = true
	}
}

// WithSearchLimit bounds search results.
func WithSearchLimit(n int) Option {
	return func(e *Engine) {
		e.searchLimit = n
	}
}

// WithMaxInputSize overrides the message size limit in bytes.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.maxInputSize = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes a Bookflow Engine. With no options it runs entirely in
// memory: rule classifier, seeded catalog, in-process sessions.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.now == nil {
		eng.now = time.Now
	}
	if eng.classifier == nil {
		eng.classifier = nlu.New()
	}
	if eng.store == nil {
		mem := memory.NewCatalog()
		if err := mem.Seed(context.Background(), catalog.Default()); err != nil {
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		eng.store = mem
	}
	if eng.audit == nil {
		if a, ok := eng.store.(ports.AuditLog); ok {
			eng.audit = a
		}
	}
	if eng.sessionStore == nil {
		eng.sessionStore = memory.NewStore()
	}

	if !eng.quantitySet {
		eng.defaultQuantity = 1
	}
	var validatorOpts []runtime.ValidatorOption
	if eng.defaultQuantity > 0 {
		validatorOpts = append(validatorOpts, runtime.WithDefaultQuantity(eng.defaultQuantity))
	}

	rtOpts := []runtime.EngineOption{
		runtime.WithValidator(runtime.NewValidator(validatorOpts...)),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithClock(eng.now),
		runtime.WithSearchLimit(eng.searchLimit),
	}
	if eng.generator != nil {
		rtOpts = append(rtOpts, runtime.WithGenerator(eng.generator, eng.generateTimeout))
	}
	if eng.audit != nil {
		rtOpts = append(rtOpts, runtime.WithAuditLog(eng.audit))
	}
	eng.runtime = runtime.NewEngine(eng.classifier, eng.store, rtOpts...)

	if err := eng.runtime.Graph().Validate(); err != nil {
		return nil, fmt.Errorf("invalid turn graph: %w", err)
	}

	sessOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithClock(eng.now),
	}
	if eng.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(eng.locker))
	}
	if eng.ttlSet {
		sessOpts = append(sessOpts, session.WithTTL(eng.sessionTTL))
	}
	if eng.historySet {
		sessOpts = append(sessOpts, session.WithHistoryLimit(eng.historyLimit))
	}
	eng.sessions = session.NewManager(eng.sessionStore, sessOpts...)

	return eng, nil
}

// HandleTurn runs one user message through the turn graph and returns the
// assistant reply. Turns for the same user are serialised.
//
// Once the turn has produced a reply, a failure to save the session snapshot
// is logged and the reply is still returned: the bookstore mutations are
// already committed and the user must see their outcome.
func (e *Engine) HandleTurn(ctx context.Context, userID, text string) (domain.Message, error) {
	if userID == "" {
		return domain.Message{}, ErrMissingUserID
	}
	clean, err := e.sanitize(text)
	if err != nil {
		return domain.Message{}, err
	}

	var (
		reply   domain.Message
		replied bool
	)
	err = e.sessions.Run(ctx, userID, func(ctx context.Context, sess *domain.Session) error {
		msg, err := e.runtime.Turn(ctx, sess, clean)
		if err != nil {
			return err
		}
		reply, replied = msg, true
		return nil
	})
	if err != nil {
		if replied {
			e.logger.Error("Failed to save session after turn",
				"user_id", userID,
				"turn", reply.Turn,
				"err", err,
			)
			return reply, nil
		}
		return domain.Message{}, err
	}
	return reply, nil
}

func (e *Engine) sanitize(text string) (string, error) {
	if e.maxInputSize > 0 {
		return runner.SanitizeInputLimit(text, e.maxInputSize)
	}
	return runner.SanitizeInput(text)
}

// Session returns a snapshot of the user's session, or domain.ErrSessionNotFound.
func (e *Engine) Session(ctx context.Context, userID string) (*domain.Session, error) {
	return e.sessions.Get(ctx, userID)
}

// ResetSession forgets the user's conversation. Bookstore data is untouched.
func (e *Engine) ResetSession(ctx context.Context, userID string) error {
	return e.sessions.Delete(ctx, userID)
}

// Sessions exposes the session manager (janitor, listing).
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Graph returns the turn graph.
func (e *Engine) Graph() *graph.Graph {
	return e.runtime.Graph()
}

// Store returns the bookstore backend.
func (e *Engine) Store() ports.Store {
	return e.store
}
