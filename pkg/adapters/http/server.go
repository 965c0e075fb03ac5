// Package http exposes the Bookflow engine over HTTP and WebSocket.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	presentation "github.com/aretw0/bookflow/internal/presentation/graph"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/graph"
	"github.com/aretw0/bookflow/pkg/runner"
	"github.com/aretw0/bookflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// Engine defines what the transport needs from the orchestrator.
type Engine interface {
	HandleTurn(ctx context.Context, userID, text string) (domain.Message, error)
	Session(ctx context.Context, userID string) (*domain.Session, error)
	ResetSession(ctx context.Context, userID string) error
	Graph() *graph.Graph
}

// Info is served on GET /info.
type Info struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine      Engine
	mailbox     *session.Mailbox
	logger      *slog.Logger
	metrics     http.Handler
	corsOrigins []string
	info        Info
	upgrader    websocket.Upgrader
	validator   *requestValidator
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithCORSOrigins restricts cross-origin access. Empty allows any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMailbox shares a mailbox with other transports so a user's messages
// stay ordered across them.
func WithMailbox(m *session.Mailbox) Option {
	return func(s *Server) {
		s.mailbox = m
	}
}

// WithInfo sets the build information served on /info.
func WithInfo(info Info) Option {
	return func(s *Server) {
		s.info = info
	}
}

// NewServer creates a Server.
func NewServer(engine Engine, opts ...Option) (*Server, error) {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		info:   Info{Name: "bookflow", StartedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailbox == nil {
		s.mailbox = session.NewMailbox(s.logger)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	v, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	s.validator = v
	return s, nil
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s, err := NewServer(engine, opts...)
	if err != nil {
		return nil, err
	}
	return s.Routes(), nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Use(s.validator.middleware)

	r.Get("/health", s.health)
	r.Get("/info", s.getInfo)
	r.Get("/graph", s.getGraph)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(openapiSpec) //nolint:errcheck
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/turn", s.postTurn)
		r.Get("/ws", s.chatSocket)
		r.Get("/sessions/{userID}", s.getSession)
		r.Delete("/sessions/{userID}", s.deleteSession)
	})
	return r
}

// Close stops accepting WebSocket messages and waits for queued turns.
func (s *Server) Close() {
	s.mailbox.Close()
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.corsOrigins) == 0 {
		return true
	}
	for _, o := range s.corsOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.corsOrigins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.originAllowed(r):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type turnRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	var body turnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		s.logger.Warn("Turn: invalid request body", "err", err)
		return
	}

	// Once started, the turn completes even if the client goes away.
	reply, err := s.engine.HandleTurn(context.WithoutCancel(r.Context()), body.UserID, body.Message)
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			s.logger.Error("Turn failed", "user_id", body.UserID, "err", err)
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sess, err := s.engine.Session(r.Context(), userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetSession(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g := s.engine.Graph()
	if r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(presentation.GenerateMermaid(g, nil))) //nolint:errcheck
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": g.Edges()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8),
		errors.Is(err, runner.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
