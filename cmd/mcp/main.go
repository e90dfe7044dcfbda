package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/manual-qa/internal/adapters/mcp"
	"github.com/kirillkom/manual-qa/internal/bootstrap"
	"github.com/kirillkom/manual-qa/internal/config"
	"github.com/kirillkom/manual-qa/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	// Logs must stay off stdout: stdio is the MCP transport.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", "warn")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(version, app.AnswerUC, app.Retriever)
	if err := server.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
