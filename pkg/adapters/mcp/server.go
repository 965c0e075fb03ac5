// Package mcp exposes the Bookflow engine as a Model Context Protocol server,
// so an agent can hold a bookstore conversation on a user's behalf.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/bookflow/internal/logging"
	presentation "github.com/aretw0/bookflow/internal/presentation/graph"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/graph"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	graphURI   = "bookflow://graph"
	mermaidURI = "bookflow://graph.mmd"
)

// Engine defines what the MCP server needs from the orchestrator.
type Engine interface {
	HandleTurn(ctx context.Context, userID, text string) (domain.Message, error)
	Session(ctx context.Context, userID string) (*domain.Session, error)
	Graph() *graph.Graph
}

// TurnResponse is the structured result of chat_turn.
type TurnResponse struct {
	Text   string         `json:"text" jsonschema_description:"The assistant reply"`
	Intent domain.Intent  `json:"intent,omitempty" jsonschema_description:"The intent the turn acted on"`
	Turn   uint64         `json:"turn" jsonschema_description:"Turn number within the session"`
	Reply  domain.Message `json:"reply" jsonschema_description:"The full reply with attachments"`
}

type chatArgs struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type sessionArgs struct {
	UserID string `json:"user_id"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("bookflow-mcp", version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	chatTool := mcp.NewTool("chat_turn",
		mcp.WithDescription("Send one message from a user to the bookstore assistant and get its reply. "+
			"The conversation state (pending questions, confirmations) is kept per user_id."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Stable id of the end user")),
		mcp.WithString("message", mcp.Required(), mcp.Description("What the user said, in Spanish or English")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChatTurn))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the stored conversation state of a user."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Stable id of the end user")),
	), s.handleGetSession)
}

func (s *Server) handleChatTurn(ctx context.Context, request mcp.CallToolRequest, args chatArgs) (TurnResponse, error) {
	reply, err := s.engine.HandleTurn(ctx, args.UserID, args.Message)
	if err != nil {
		s.logger.Warn("MCP chat_turn rejected", "user_id", args.UserID, "err", err)
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return TurnResponse{
		Text:   reply.Text,
		Intent: reply.Intent,
		Turn:   reply.Turn,
		Reply:  reply,
	}, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := request.BindArguments(&args); err != nil || args.UserID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	sess, err := s.engine.Session(ctx, args.UserID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no session for %q", args.UserID)), nil
	}
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Turn graph",
		mcp.WithResourceDescription("Edges of the per-turn state machine"),
		mcp.WithMIMEType("application/json"),
	), s.readGraph)

	s.mcpServer.AddResource(mcp.NewResource(mermaidURI, "Turn graph (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), s.readMermaid)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.engine.Graph().Edges())
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: graphURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func (s *Server) readMermaid(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      mermaidURI,
			MIMEType: "text/plain",
			Text:     presentation.GenerateMermaid(s.engine.Graph(), nil),
		},
	}, nil
}
