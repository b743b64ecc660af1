package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/corpus"
	mcputil "github.com/sha1n/mcp-refqa-server/internal/mcp"
	"github.com/sha1n/mcp-refqa-server/internal/qa"
)

// ServerName is the MCP implementation name.
const ServerName = "refqa-mcp"

// Runtime holds the services a running server exposes.
type Runtime struct {
	MCP    *mcp.Server
	QA     *qa.Service
	Corpus *corpus.Service
}

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *Runtime, *config.Settings) error
	CreateRuntime     func(context.Context, *config.Settings, string) (*Runtime, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateRuntime:  CreateRuntime,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues
	slog.SetDefault(config.NewLogger(settings, os.Stderr))

	slog.Info("Starting MCP REFQA server", "version", version)
	config.Log(settings)

	rt, cleanup, err := params.CreateRuntime(ctx, settings, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return rt.MCP.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(ctx, rt, settings)
}

// CreateRuntime creates the corpus and session services and the MCP server
// exposing them. The corpus loads in the background; tools report that
// references are still loading until it completes. The returned cleanup stops
// the background work and releases the corpus.
func CreateRuntime(ctx context.Context, settings *config.Settings, version string) (*Runtime, func(), error) {
	corpusSvc, err := corpus.NewService(&settings.References)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reference corpus: %w", err)
	}

	qaSvc := qa.NewService(&settings.Questions, corpusSvc, corpusSvc.Decoder())

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    ServerName,
		Version: version,
		QASvc:   qaSvc,
	})

	bgCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		LoadReferences(bgCtx, corpusSvc, settings.References.Watch)
	}()

	cleanup := func() {
		cancel()
		<-done
		if err := corpusSvc.Close(); err != nil {
			slog.Error("Failed to close reference corpus", "error", err)
		}
	}

	return &Runtime{MCP: server, QA: qaSvc, Corpus: corpusSvc}, cleanup, nil
}

// LoadReferences performs the initial corpus load and, when watch is set, keeps
// reloading on directory changes until ctx is done.
func LoadReferences(ctx context.Context, svc *corpus.Service, watch bool) {
	if _, err := svc.Reload(ctx); err != nil {
		slog.Error("Reference load failed", "error", err)
	}

	if !watch || ctx.Err() != nil {
		return
	}
	if svc.Settings().BaseURL != "" {
		slog.Warn("Watching is only supported for a local reference directory")
		return
	}
	if err := svc.Watch(ctx); err != nil {
		slog.Error("Reference watcher stopped", "error", err)
	}
}
