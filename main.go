// go_ytsum — YouTube transcript summarizer MCP server.
//
// Exposes five MCP tools: youtube_transcript, youtube_summarize,
// transcript_summarize, summary_history, summary_get.
// Set HTTP_ADDR to also serve the REST API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/appconfig"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/httpapi"
	"github.com/anatolykoptev/go_ytsum/internal/ytserver"
)

var (
	version  = "dev"
	mcpPort  = env.Str("MCP_PORT", "8891")
	httpAddr = env.Str("HTTP_ADDR", "")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := appconfig.Build(ctx, appconfig.Load())
	if err != nil {
		slog.Error("init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	slog.Info("starting go_ytsum",
		slog.String("port", mcpPort),
		slog.String("http_addr", httpAddr),
	)

	if httpAddr != "" {
		go func() {
			if err := httpapi.Serve(ctx, httpAddr, svc); err != nil {
				slog.Error("http api failed", slog.Any("error", err))
			}
		}()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_ytsum",
		Version: version,
	}, nil)

	ytserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", 5))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_ytsum",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}
