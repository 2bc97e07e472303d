package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knoguchi/qbridge/internal/binding"
	"github.com/knoguchi/qbridge/internal/config"
	"github.com/knoguchi/qbridge/internal/monitor"
	"github.com/knoguchi/qbridge/internal/provider"
	"github.com/knoguchi/qbridge/internal/router"
	"github.com/knoguchi/qbridge/internal/server"
	"github.com/knoguchi/qbridge/internal/vectorstore"
)

func main() {
	stdio := flag.Bool("stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	flag.Parse()

	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(*stdio); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run(stdio bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting qbridge",
		"http_port", cfg.HTTPPort,
		"mcp_port", cfg.MCPPort,
		"environment", cfg.Environment,
	)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant", "url", cfg.QdrantGRPCURL)

	// Initialize the provider registry and binding table
	registry := provider.NewRegistry(provider.Options{
		OllamaBaseURL: cfg.OllamaURL,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
	})

	defaultBinding := binding.CollectionBinding{
		ProviderKind: cfg.DefaultEmbeddingProvider,
		Model:        cfg.DefaultEmbeddingModel,
		VectorField:  cfg.DefaultVectorField,
		Dimension:    cfg.DefaultVectorDimension,
	}
	table := binding.NewTable(defaultBinding, registry)

	// Register configured collection bindings. A bad binding is logged
	// and skipped; the collection falls back to the default binding.
	bindings, err := config.LoadBindings(cfg.BindingsFile)
	if err != nil {
		return fmt.Errorf("failed to load bindings: %w", err)
	}
	for _, b := range bindings {
		if err := table.Register(ctx, b); err != nil {
			slog.Error("failed to register collection binding",
				"collection", b.Collection,
				"error", err)
			continue
		}
		slog.Info("registered collection binding",
			"collection", b.Collection,
			"provider", b.ProviderKind,
			"model", b.Model,
			"vector_field", b.VectorField,
			"dimension", b.Dimension)
	}

	embedRouter := router.New(table, registry)

	// Monitoring
	containers := monitor.NewContainerCollector(cfg.MonitorContainerPattern)
	mon := monitor.NewMonitor(
		[]monitor.Collector{
			monitor.NewDatabaseCollector(vectorStore),
			monitor.NewHostCollector(cfg.MonitorDiskPath),
			containers,
		},
		monitor.NewAnalyzer(monitor.AnalyzerConfig{
			HostMemoryWarnPct:      cfg.HostMemoryWarnPct,
			ContainerMemoryWarnPct: cfg.ContainerMemoryWarnPct,
			DiskCriticalPct:        cfg.DiskCriticalPct,
			IndexedRatioWarn:       cfg.IndexedRatioWarn,
		}),
		cfg.CollectorTimeout,
		slog.Default(),
	)

	mcpServer := server.NewMCPServer(server.MCPServerConfig{
		Port:        cfg.MCPPort,
		Logger:      slog.Default(),
		Router:      embedRouter,
		Store:       vectorStore,
		Table:       table,
		Monitor:     mon,
		Logs:        containers,
		SearchLimit: cfg.SearchLimit,
	})

	if stdio {
		slog.Info("serving MCP over stdio")
		return mcpServer.ServeStdio()
	}

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:    cfg.HTTPPort,
		Logger:  slog.Default(),
		Store:   vectorStore,
		Monitor: mon,
		Table:   table,
	})

	// Start servers
	errCh := make(chan error, 2)

	go func() {
		if err := mcpServer.Start(); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	slog.Info("shutting down servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}
	if err := mcpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown MCP server", "error", err)
	}

	slog.Info("servers stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ vectorstore.VectorStore   = (*vectorstore.QdrantStore)(nil)
	_ binding.DimensionResolver = (*provider.Registry)(nil)
	_ monitor.Collector         = (*monitor.DatabaseCollector)(nil)
	_ monitor.Collector         = (*monitor.HostCollector)(nil)
	_ monitor.Collector         = (*monitor.ContainerCollector)(nil)
	_ server.LogReader          = (*monitor.ContainerCollector)(nil)
)
