// Package nats serves conversation turns as NATS request/reply.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/session"
	"github.com/nats-io/nats.go"
)

const (
	DefaultSubject = "bookflow.turn"
	DefaultQueue   = "bookflow"
)

// Engine runs one turn.
type Engine interface {
	HandleTurn(ctx context.Context, userID, text string) (domain.Message, error)
}

// Request is the payload published on the turn subject.
type Request struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Response is the reply payload. Exactly one field is set.
type Response struct {
	Reply *domain.Message `json:"reply,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Transport subscribes a queue group to the turn subject. Replicas sharing the
// queue split the load; turns of one user are ordered by the mailbox.
type Transport struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	engine  Engine
	mailbox *session.Mailbox
	subject string
	queue   string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures the Transport.
type Option func(*Transport)

func WithSubject(subject string) Option {
	return func(t *Transport) {
		t.subject = subject
	}
}

func WithQueue(queue string) Option {
	return func(t *Transport) {
		t.queue = queue
	}
}

// WithTimeout bounds each turn. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithMailbox shares a mailbox with other transports.
func WithMailbox(m *session.Mailbox) Option {
	return func(t *Transport) {
		t.mailbox = m
	}
}

// New creates a transport over an existing connection. conn may be nil when
// only Handle is used.
func New(conn *nats.Conn, engine Engine, opts ...Option) *Transport {
	t := &Transport{
		conn:    conn,
		engine:  engine,
		subject: DefaultSubject,
		queue:   DefaultQueue,
		timeout: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.mailbox == nil {
		t.mailbox = session.NewMailbox(t.logger)
	}
	return t
}

// Connect dials url with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Start subscribes to the turn subject.
func (t *Transport) Start() error {
	if t.conn == nil {
		return errors.New("nats: no connection")
	}
	sub, err := t.conn.QueueSubscribe(t.subject, t.queue, t.onMsg)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", t.subject, err)
	}
	t.sub = sub
	t.logger.Info("Subscribed to turn subject", "subject", t.subject, "queue", t.queue)
	return nil
}

func (t *Transport) onMsg(msg *nats.Msg) {
	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.UserID == "" {
		t.respond(msg, Response{Error: "invalid request: expected {\"user_id\", \"message\"}"})
		return
	}
	err := t.mailbox.Submit(req.UserID, func() {
		t.respond(msg, t.Handle(context.Background(), req))
	})
	if err != nil {
		t.respond(msg, Response{Error: err.Error()})
	}
}

// Handle runs one request and builds its response.
func (t *Transport) Handle(ctx context.Context, req Request) Response {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	reply, err := t.engine.HandleTurn(ctx, req.UserID, req.Message)
	if err != nil {
		t.logger.Warn("Turn failed", "user_id", req.UserID, "err", err)
		return Response{Error: err.Error()}
	}
	return Response{Reply: &reply}
}

func (t *Transport) respond(msg *nats.Msg, resp Response) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.logger.Error("Failed to marshal response", "err", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		t.logger.Warn("Failed to send response", "err", err)
	}
}

// Close drains the subscription, waits for queued turns and then drains the
// connection.
func (t *Transport) Close() error {
	var err error
	if t.sub != nil {
		err = t.sub.Drain()
	}
	t.mailbox.Close()
	if t.conn != nil {
		err = errors.Join(err, t.conn.Drain())
	}
	return err
}
