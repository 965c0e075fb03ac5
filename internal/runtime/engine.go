package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/graph"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/google/uuid"
)

// Engine runs one conversation turn at a time against a session the caller
// already holds exclusively.
type Engine struct {
	graph      *graph.Graph
	classifier ports.Classifier
	validator  *Validator
	loader     *Loader
	dispatcher *Dispatcher
	committer  *Committer
	builder    *Builder
	audit      ports.AuditLog
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time

	generator       ports.TextGenerator
	generateTimeout time.Duration
	historyTail     int
	searchLimit     int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithGraph replaces the default turn graph.
func WithGraph(g *graph.Graph) EngineOption {
	return func(e *Engine) {
		e.graph = g
	}
}

// WithValidator replaces the default validator.
func WithValidator(v *Validator) EngineOption {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithDispatcher replaces the default bookstore handlers.
func WithDispatcher(d *Dispatcher) EngineOption {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithGenerator enables natural-language replies. timeout bounds each call.
func WithGenerator(g ports.TextGenerator, timeout time.Duration) EngineOption {
	return func(e *Engine) {
		e.generator = g
		e.generateTimeout = timeout
	}
}

// WithHistoryTail sets how many history entries the generator sees.
func WithHistoryTail(n int) EngineOption {
	return func(e *Engine) {
		e.historyTail = n
	}
}

// WithSearchLimit bounds search results.
func WithSearchLimit(n int) EngineOption {
	return func(e *Engine) {
		e.searchLimit = n
	}
}

// WithAuditLog records every turn.
func WithAuditLog(a ports.AuditLog) EngineOption {
	return func(e *Engine) {
		e.audit = a
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine over a classifier and a bookstore backend.
func NewEngine(classifier ports.Classifier, store ports.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		classifier: classifier,
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.graph == nil {
		e.graph = graph.Default()
	}
	if e.validator == nil {
		e.validator = NewValidator()
	}
	if e.dispatcher == nil {
		e.dispatcher = NewDispatcher(DefaultHandlers())
	}
	e.loader = NewLoader(store, e.searchLimit)
	e.committer = NewCommitter(store)
	e.builder = NewBuilder(e.generator, e.generateTimeout, e.historyTail, e.logger)
	e.builder.now = e.now
	return e
}

// Graph returns the turn graph.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Turn handles one user message. It appends the message and the reply to the
// session history and leaves the session either parked at ASK_INPUT or at
// DONE. Internal failures are answered with an apology and reset the session;
// the only error returned is ctx's, when it is already done on entry.
func (e *Engine) Turn(ctx context.Context, sess *domain.Session, raw string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	start := e.now()
	sess.Turn++
	sess.Append(domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Text:      raw,
		Turn:      sess.Turn,
		CreatedAt: start,
	}, 0)

	t := &turn{Engine: e, ctx: ctx, sess: sess, state: sess.State}
	reply, outcome, err := t.safeRun(raw)
	if err != nil {
		e.logger.Error("Turn aborted",
			"user_id", sess.UserID,
			"turn", sess.Turn,
			"state", t.state,
			"intent", t.intent,
			"err", err,
		)
		sess.Reset()
		reply = e.builder.Apology(sess.Turn)
		outcome = domain.OutcomeAborted
	}
	sess.Append(reply, 0)

	ev := &domain.TurnEvent{
		UserID:   sess.UserID,
		Turn:     sess.Turn,
		Intent:   t.intent,
		Outcome:  outcome,
		Trace:    t.trace,
		Duration: e.now().Sub(start),
	}
	if e.hooks.OnTurnComplete != nil {
		e.hooks.OnTurnComplete(ctx, ev)
	}
	e.record(ctx, raw, reply, ev)

	e.logger.Debug("Turn complete",
		"user_id", sess.UserID,
		"turn", sess.Turn,
		"intent", t.intent,
		"outcome", outcome,
		"duration", ev.Duration,
	)
	return reply, nil
}

func (e *Engine) record(ctx context.Context, raw string, reply domain.Message, ev *domain.TurnEvent) {
	if e.audit == nil {
		return
	}
	rec := ports.TurnRecord{
		ID:       uuid.NewString(),
		UserID:   ev.UserID,
		Turn:     ev.Turn,
		Intent:   ev.Intent,
		Outcome:  ev.Outcome,
		Trace:    ev.Trace,
		Request:  raw,
		Response: reply.Text,
		Duration: ev.Duration,
		At:       reply.CreatedAt,
	}
	if err := e.audit.RecordTurn(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Warn("Failed to record turn", "user_id", ev.UserID, "turn", ev.Turn, "err", err)
	}
}

// turn is the state of one traversal of the graph.
type turn struct {
	*Engine
	ctx    context.Context
	sess   *domain.Session
	state  domain.State
	trace  []domain.State
	intent domain.Intent
}

func (t *turn) enter(s domain.State, via domain.Condition) {
	t.state = s
	t.trace = append(t.trace, s)
	if t.hooks.OnStateEnter != nil {
		t.hooks.OnStateEnter(t.ctx, &domain.StateEvent{
			UserID:    t.sess.UserID,
			Turn:      t.sess.Turn,
			State:     s,
			Via:       via,
			Intent:    t.intent,
			Timestamp: t.now(),
		})
	}
}

// advance follows the edge labelled on. A missing edge is a programming error
// and aborts the turn.
func (t *turn) advance(on domain.Condition) error {
	next, err := t.graph.Next(t.state, on)
	if err != nil {
		return err
	}
	t.enter(next, on)
	return nil
}

// safeRun converts a handler panic into an aborted turn.
func (t *turn) safeRun(raw string) (reply domain.Message, outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", t.state, r)
		}
	}()
	return t.run(raw)
}

func (t *turn) run(raw string) (domain.Message, string, error) {
	sess := t.sess
	if sess.State == domain.StateAskInput {
		t.state = domain.StateAskInput
		if err := t.advance(domain.CondUserResponded); err != nil {
			return domain.Message{}, "", err
		}
	} else {
		t.enter(domain.StateValidateInput, "")
	}

	intent, slots := t.interpret(raw)
	t.intent = intent

	req, missing := t.validator.Validate(intent, slots)
	if len(missing) > 0 {
		if err := t.advance(domain.CondMissingData); err != nil {
			return domain.Message{}, "", err
		}
		sess.Park(intent, slots, missing)
		reply := t.builder.Clarify(t.ctx, sess.Turn, intent, missing, sess.History)
		return reply, domain.OutcomeAskInput, nil
	}
	if err := t.advance(domain.CondValidInput); err != nil {
		return domain.Message{}, "", err
	}

	result, err := t.act(req)
	if err != nil {
		return domain.Message{}, "", err
	}

	reply := t.builder.Build(t.ctx, sess.Turn, result, sess.History)
	if err := t.advance(domain.CondResponseBuilt); err != nil {
		return domain.Message{}, "", err
	}

	sess.Finish()
	if result.Kind == domain.ResultNeedsConfirmation {
		sess.Resume = result.Resume
	}
	stored := result
	stored.Mutations = nil
	sess.LastResult = &stored

	return reply, outcomeOf(result), nil
}

// interpret classifies raw and decides which intent and slots this turn works
// with. While parked, a message that carries slots for the pending intent
// completes it; a different known intent starts over; anything else leaves
// the accumulator untouched so the same fields are asked again. A guessed
// title that matches no book counts as no slot at all.
func (t *turn) interpret(raw string) (domain.Intent, domain.Slots) {
	sess := t.sess
	parked := sess.State == domain.StateAskInput && sess.PendingIntent.Known()

	var hint domain.Intent
	switch {
	case parked:
		hint = sess.PendingIntent
	case sess.Resume != nil:
		hint = sess.Resume.Intent
	}

	c, err := t.classifier.Classify(t.ctx, raw, hint)
	if err != nil {
		t.logger.Warn("Classifier failed, treating message as unclassifiable", "user_id", sess.UserID, "err", err)
		c = ports.Classification{Intent: domain.IntentUnknown}
	}
	if !c.Intent.Known() {
		c.Intent = domain.IntentUnknown
	}
	slots, err := DecodeSlots(c.Slots)
	if err != nil {
		t.logger.Warn("Discarding undecodable slots", "user_id", sess.UserID, "intent", c.Intent, "err", err)
		slots = domain.Slots{}
	}

	if parked {
		pending := sess.PendingIntent
		if c.Intent == domain.IntentUnknown {
			slots = t.dropUnresolved(slots)
		}
		switch {
		case c.Intent == pending, c.Intent == domain.IntentUnknown && slots.Relevant(pending):
			return pending, sess.Slots.Merge(slots.Restrict(pending))
		case c.Intent != domain.IntentUnknown:
			sess.Resume = nil
			return c.Intent, slots.Restrict(c.Intent)
		}
		return pending, sess.Slots
	}

	if resume := sess.Resume; resume != nil {
		sess.Resume = nil
		if (c.Intent == resume.Intent || c.Intent == domain.IntentUnknown) && slots.Confirmation != nil {
			return resume.Intent, resume.Slots.Merge(slots.Restrict(resume.Intent))
		}
	}
	return c.Intent, slots.Restrict(c.Intent)
}

// dropUnresolved clears a guessed book reference that names no catalog book,
// so chatter such as "Hoy hace calor" re-asks instead of failing with
// not_found. A lookup error keeps the guess for the action to report.
func (t *turn) dropUnresolved(slots domain.Slots) domain.Slots {
	if slots.BookReference == nil || slots.BookID != nil {
		return slots
	}
	ok, err := t.loader.Resolves(t.ctx, domain.BookRef{Title: *slots.BookReference})
	if err != nil || ok {
		return slots
	}
	t.logger.Debug("Ignoring unresolved book reference",
		"user_id", t.sess.UserID,
		"reference", *slots.BookReference,
	)
	slots.BookReference = nil
	return slots
}

// act runs LOAD_CONTEXT, APPLY_ACTION and PERSIST and leaves the turn at
// BUILD_RESPONSE.
func (t *turn) act(req domain.Request) (domain.ActionResult, error) {
	intent := req.Intent()
	userID := t.sess.UserID

	tc, err := t.loader.Load(t.ctx, userID, t.now(), req)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownIntent) {
			return domain.ActionResult{}, err
		}
		t.logger.Warn("Context load failed",
			"user_id", userID,
			"intent", intent,
			"err", err,
		)
		return domain.Failure(intent, domain.FailContext, err.Error()), t.advance(domain.CondActionFailed)
	}
	if err := t.advance(domain.CondContextLoaded); err != nil {
		return domain.ActionResult{}, err
	}

	result, err := t.dispatcher.Dispatch(t.ctx, tc, req)
	if err != nil {
		return domain.ActionResult{}, err
	}
	if !result.Succeeded() {
		result.Mutations = nil
		return result, t.advance(domain.CondActionFailed)
	}
	if err := t.advance(domain.CondActionCompleted); err != nil {
		return domain.ActionResult{}, err
	}

	if _, err := t.committer.Persist(t.ctx, userID, &result); err != nil {
		t.logger.Error("Commit failed",
			"user_id", userID,
			"intent", intent,
			"mutations", len(result.Mutations),
			"err", err,
		)
		return domain.Failure(intent, domain.FailPersistence, err.Error()), t.advance(domain.CondActionFailed)
	}
	return result, t.advance(domain.CondPersisted)
}

func outcomeOf(r domain.ActionResult) string {
	switch r.Kind {
	case domain.ResultSuccess:
		return domain.OutcomeSuccess
	case domain.ResultNeedsConfirmation:
		return domain.OutcomeConfirmation
	}
	return domain.OutcomeFailure
}
