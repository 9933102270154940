package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/mcp"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the process logger. Stdout carries the MCP protocol in
// stdio mode, so logs go to stderr and are dropped there unless debug is on.
func setupLogging(cfg *config.Config, stderr io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	out := stderr
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		out = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.IsServerMode(),
	}))
	slog.SetDefault(logger)
	return logger
}

// serviceOptions maps the process configuration onto the PDF service
func serviceOptions(cfg *config.Config, logger *slog.Logger) pdf.Options {
	return pdf.Options{
		Directory:       cfg.PDFDirectory,
		OutputDirectory: cfg.OutputDirectory,
		MaxFileSize:     cfg.MaxFileSize,
		FetchTimeout:    cfg.FetchTimeout,
		MappingFile:     cfg.MappingFile,
		DateLayout:      cfg.DateFormat,
		Flatten:         cfg.Flatten,
		PreviewCache:    cfg.PreviewCache,
		Logger:          logger,
	}
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *slog.Logger) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()

		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", "error", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// runStdioMode handles stdio mode execution. The parent process owns the
// lifecycle; Run returns when stdin closes.
func runStdioMode(ctx context.Context, server *mcp.Server, logger *slog.Logger) {
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg, os.Stderr)

	if version != "dev" {
		cfg.Version = version
	}

	logger.Debug("starting", "config", cfg.String())

	pdfService, err := pdf.NewService(serviceOptions(cfg, logger))
	if err != nil {
		logger.Error("failed to create PDF service", "error", err)
		os.Exit(1)
	}

	server, err := mcp.NewServer(cfg, pdfService, logger)
	if err != nil {
		logger.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server, logger)
	} else {
		runStdioMode(ctx, server, logger)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Forms\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
