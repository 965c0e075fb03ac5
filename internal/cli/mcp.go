package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/bookflow"
	"github.com/aretw0/bookflow/internal/config"
	"github.com/aretw0/bookflow/pkg/adapters/mcp"
)

// MCPOptions selects the MCP transport.
type MCPOptions struct {
	Transport string
	Addr      string
	BaseURL   string
}

// RunMCP serves the engine as an MCP server. Logs always go to stderr so the
// stdio transport keeps stdout for JSON-RPC.
func RunMCP(ctx context.Context, cfg config.Config, opts MCPOptions) error {
	logger, err := createLogger(cfg.Log, true)
	if err != nil {
		return err
	}
	res, err := createEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close() //nolint:errcheck

	srv := mcp.NewServer(res.Engine, bookflow.Version, logger)
	switch opts.Transport {
	case "stdio":
		logger.Info("Starting Bookflow MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		return srv.ServeSSE(ctx, opts.Addr, opts.BaseURL)
	default:
		return fmt.Errorf("unknown transport %q: supported stdio, sse", opts.Transport)
	}
}
