package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/faultline"
	"github.com/aretw0/faultline/internal/logging"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/aretw0/faultline/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const flagsResourceURI = "faultline://flags"

// Server exposes a FlagStore to agents as an MCP Server.
type Server struct {
	store     ports.FlagStore
	logger    *slog.Logger
	onChange  func(domain.FlagName)
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithChangeHook registers a callback invoked after set_flag succeeds.
func WithChangeHook(fn func(domain.FlagName)) Option {
	return func(s *Server) {
		s.onChange = fn
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(store ports.FlagStore, opts ...Option) *Server {
	s := &Server{
		store:     store,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("faultline-mcp", faultline.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
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

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_flags",
		mcp.WithDescription("List every fault flag with its current state."),
	), s.handleListFlags)

	s.mcpServer.AddTool(mcp.NewTool("set_flag",
		mcp.WithDescription("Enable or disable a fault flag. Only modifiable flags can be changed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Flag ID, e.g. DelaySimulation or TimeoutError")),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("New state of the flag")),
	), s.handleSetFlag)
}

func (s *Server) handleListFlags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("MCP list_flags failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flags: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleSetFlag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, _ := args["id"].(string)
	enabled, ok := args["enabled"].(bool)
	if id == "" || !ok {
		return mcp.NewToolResultError("set_flag requires 'id' (string) and 'enabled' (boolean)"), nil
	}

	flag, err := flags.SetEnabled(ctx, s.store, id, enabled)
	if err != nil {
		return s.toolError(id, err), nil
	}

	s.logger.Info("Flag updated via MCP", "flag", id, "enabled", enabled)
	if s.onChange != nil {
		s.onChange(id)
	}

	jsonBytes, err := json.Marshal(flag)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flag: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) toolError(id domain.FlagName, err error) *mcp.CallToolResult {
	if !errors.Is(err, domain.ErrFlagNotFound) && !errors.Is(err, domain.ErrFlagNotModifiable) {
		s.logger.Error("MCP set_flag failed", "flag", id, "error", err)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", id, err))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(flagsResourceURI, "Fault Flags",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list flags: %w", err)
		}
		jsonBytes, _ := json.Marshal(list)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      flagsResourceURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
