// Package mcpserver exposes supervised processes and their logs as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tessro/devsup/internal/config"
	"github.com/tessro/devsup/internal/registry"
	"github.com/tessro/devsup/internal/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "devsup"

// shutdownTimeout bounds SSE server shutdown.
const shutdownTimeout = 5 * time.Second

// Server binds a process registry to an MCP server.
type Server struct {
	mcp        *server.MCPServer
	reg        *registry.Registry
	cfg        *config.Config
	defaultKey string
	log        *slog.Logger
}

// New creates a Server with every tool registered. cfg may be nil.
func New(reg *registry.Registry, cfg *config.Config) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			version.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		reg:        reg,
		cfg:        cfg,
		defaultKey: config.DefaultProcessKey,
		log:        slog.With("component", "mcpserver"),
	}
	for _, t := range s.tools() {
		s.mcp.AddTool(t.tool, t.handler)
	}
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type toolDef struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func (s *Server) tools() []toolDef {
	return append(s.processTools(), s.logTools()...)
}

// ServeStdio serves MCP over in and out until ctx is cancelled or in is
// closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Info("Server.ServeStdio: listening")
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

// ServeSSE serves MCP over HTTP server-sent events on host:port until ctx
// is cancelled. The SSE endpoint is <basePath>/sse.
func (s *Server) ServeSSE(ctx context.Context, host string, port int, basePath string) error {
	addr := host + ":" + strconv.Itoa(port)
	sse := server.NewSSEServer(s.mcp,
		server.WithBaseURL("http://"+addr),
		server.WithStaticBasePath(basePath),
		server.WithKeepAlive(true),
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           sse,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("Server.ServeSSE: listening", "addr", addr, "endpoint", "http://"+addr+basePath+"/sse")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sse.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("Server.ServeSSE: sse shutdown", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// key returns the process key named by the request, or the default.
func (s *Server) key(args map[string]any) string {
	if name := stringArg(args, "name"); name != "" {
		return name
	}
	return s.defaultKey
}
