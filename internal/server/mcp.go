// Package server exposes the bridge over MCP tools and a small
// operational HTTP surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/knoguchi/qbridge/internal/binding"
	"github.com/knoguchi/qbridge/internal/monitor"
	"github.com/knoguchi/qbridge/internal/router"
	"github.com/knoguchi/qbridge/internal/vectorstore"
)

// LogReader serves container logs for the diagnostics tool. Implemented
// by monitor.ContainerCollector.
type LogReader interface {
	Logs(ctx context.Context, name string, lines int) (string, error)
}

// MCPServer registers the bridge's tools on an MCP server and serves
// them over streamable HTTP.
type MCPServer struct {
	mcpServer   *server.MCPServer
	httpServer  *http.Server
	logger      *slog.Logger
	router      *router.Router
	store       vectorstore.VectorStore
	table       *binding.Table
	mon         *monitor.Monitor
	logs        LogReader
	searchLimit int
}

// MCPServerConfig holds configuration for the MCP server
type MCPServerConfig struct {
	Port        int
	Logger      *slog.Logger
	Router      *router.Router
	Store       vectorstore.VectorStore
	Table       *binding.Table
	Monitor     *monitor.Monitor
	Logs        LogReader
	SearchLimit int
}

// NewMCPServer creates the MCP server and registers all tools.
func NewMCPServer(cfg MCPServerConfig) *MCPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}

	s := &MCPServer{
		logger:      logger,
		router:      cfg.Router,
		store:       cfg.Store,
		table:       cfg.Table,
		mon:         cfg.Monitor,
		logs:        cfg.Logs,
		searchLimit: cfg.SearchLimit,
	}

	s.mcpServer = server.NewMCPServer(
		"qbridge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	s.registerTools()

	streamable := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/mcp"),
	)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           streamable,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "qdrant-store",
		Description: "Store a piece of information in a Qdrant collection, embedding it with the collection's bound model",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"information": map[string]interface{}{
					"type":        "string",
					"description": "The text to remember",
				},
				"collection_name": map[string]interface{}{
					"type":        "string",
					"description": "Collection to store into",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Optional string key/value metadata stored alongside the document",
				},
			},
			Required: []string{"information", "collection_name"},
		},
	}, s.handleStore)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "qdrant-find",
		Description: "Search a Qdrant collection for information relevant to a query, using the collection's bound model",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to look for",
				},
				"collection_name": map[string]interface{}{
					"type":        "string",
					"description": "Collection to search",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results",
				},
			},
			Required: []string{"query", "collection_name"},
		},
	}, s.handleFind)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "qdrant-list-collections",
		Description: "List all Qdrant collections with their embedding bindings and statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListCollections)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "qdrant-status",
		Description: "Aggregated status of the Qdrant database, the host, and matching containers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleStatus)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "qdrant-performance",
		Description: "Performance findings and recommendations derived from current metrics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handlePerformance)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "docker-containers",
		Description: "Resource usage of Qdrant-related containers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleContainers)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "container-logs",
		Description: "Tail the logs of a container by name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Container name to read logs from",
				},
				"lines": map[string]interface{}{
					"type":        "number",
					"description": "Number of trailing lines (default 50)",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleContainerLogs)
}

func (s *MCPServer) handleStore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Information    string            `json:"information"`
		CollectionName string            `json:"collection_name"`
		Metadata       map[string]string `json:"metadata"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	if args.Information == "" {
		return mcp.NewToolResultError("information must not be empty"), nil
	}

	vector, field, err := s.router.EmbedForStore(ctx, args.CollectionName, args.Information)
	if err != nil {
		return s.toolError(err), nil
	}

	id, err := s.store.Store(ctx, args.CollectionName, field, vector, vectorstore.Entry{
		Document: args.Information,
		Metadata: args.Metadata,
	})
	if err != nil {
		return s.toolError(err), nil
	}

	s.logger.Info("stored document",
		"collection", args.CollectionName,
		"vector_field", field,
		"id", id)
	return mcp.NewToolResultText(fmt.Sprintf("Remembered in collection %q (id %s)", args.CollectionName, id)), nil
}

func (s *MCPServer) handleFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Query          string `json:"query"`
		CollectionName string `json:"collection_name"`
		Limit          int    `json:"limit"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	if args.Query == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}
	if args.Limit <= 0 {
		args.Limit = s.searchLimit
	}

	vector, field, err := s.router.EmbedForSearch(ctx, args.CollectionName, args.Query)
	if err != nil {
		return s.toolError(err), nil
	}

	results, err := s.store.Search(ctx, args.CollectionName, field, vector, args.Limit)
	if err != nil {
		return s.toolError(err), nil
	}

	return mcp.NewToolResultStructuredOnly(map[string]any{
		"collection": args.CollectionName,
		"results":    results,
	}), nil
}

func (s *MCPServer) handleListCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return s.toolError(err), nil
	}

	type collectionInfo struct {
		Name    string                      `json:"name"`
		Binding binding.CollectionBinding   `json:"binding"`
		Stats   vectorstore.CollectionStats `json:"stats"`
		Error   string                      `json:"error,omitempty"`
	}

	infos := make([]collectionInfo, 0, len(names))
	for _, name := range names {
		info := collectionInfo{Name: name, Binding: s.table.Resolve(name)}
		stats, err := s.store.Stats(ctx, name)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Stats = stats
		}
		infos = append(infos, info)
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"collections": infos}), nil
}

func (s *MCPServer) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultStructuredOnly(s.mon.Report(ctx)), nil
}

func (s *MCPServer) handlePerformance(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := s.mon.Report(ctx)
	return mcp.NewToolResultStructuredOnly(map[string]any{
		"generated_at": report.GeneratedAt,
		"findings":     report.Findings,
	}), nil
}

func (s *MCPServer) handleContainers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := s.mon.Report(ctx)
	for _, sample := range report.Samples {
		if sample.Source == monitor.SourceContainer {
			return mcp.NewToolResultStructuredOnly(sample), nil
		}
	}
	return mcp.NewToolResultStructuredOnly(monitor.Sample{Source: monitor.SourceContainer}), nil
}

func (s *MCPServer) handleContainerLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Name  string `json:"name"`
		Lines int    `json:"lines"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	if args.Name == "" {
		return mcp.NewToolResultError("name must not be empty"), nil
	}

	logs, err := s.logs.Logs(ctx, args.Name, args.Lines)
	if err != nil {
		return s.toolError(err), nil
	}
	return mcp.NewToolResultText(logs), nil
}

// toolError maps an internal error to a kind-prefixed tool error so the
// caller can tell configuration problems from backend outages.
func (s *MCPServer) toolError(err error) *mcp.CallToolResult {
	kind := errorKind(err)
	s.logger.Warn("tool call failed", "kind", kind, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
}

// Start starts the MCP streamable HTTP server
func (s *MCPServer) Start() error {
	s.logger.Info("starting MCP server", "address", s.httpServer.Addr, "endpoint", "/mcp")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// ServeStdio serves the MCP server over stdin/stdout instead of HTTP.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Shutdown gracefully shuts down the MCP server
func (s *MCPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down MCP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("MCP server shutdown error: %w", err)
	}

	s.logger.Info("MCP server stopped")
	return nil
}
