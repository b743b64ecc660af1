package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-refqa-server/internal/api"
	"github.com/sha1n/mcp-refqa-server/internal/auth"
	"github.com/sha1n/mcp-refqa-server/internal/config"
)

// SSEPath serves the MCP SSE transport.
const SSEPath = "/sse"

// shutdownTimeout bounds graceful shutdown once the context is cancelled.
const shutdownTimeout = 5 * time.Second

// StartSSEServer starts the HTTP server (REST API and MCP over SSE) and stops
// it gracefully when ctx is done.
func StartSSEServer(ctx context.Context, rt *Runtime, settings *config.Settings) error {
	srv, err := NewSSEServer(rt, settings)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// NewSSEServer creates the HTTP server: the REST API plus the MCP SSE handler,
// both behind the configured authentication.
func NewSSEServer(rt *Runtime, settings *config.Settings) (*http.Server, error) {
	authMiddleware, err := auth.NewGinMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	if settings.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Factory function returns the server instance for each request
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return rt.MCP
	}, nil)

	router := api.NewRouter(rt.QA, authMiddleware)
	router.Any(SSEPath, authMiddleware, gin.WrapH(sseHandler))

	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
