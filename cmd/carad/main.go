// Carad is the compliance assistant daemon.
//
// It serves the conversational compliance API over HTTP: chat submissions
// are deduplicated, answered from the semantic answer store where
// possible, and otherwise handed to background generation with a
// pollable task handle.
//
// Usage:
//
//	# Start with defaults (~/.config/carad/config.yaml if present)
//	carad
//
//	# Explicit config file
//	carad -config /etc/carad/config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9090 GENERATOR_API_KEY=sk-... carad
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/caralabs/carad/internal/answerstore"
	"github.com/caralabs/carad/internal/config"
	"github.com/caralabs/carad/internal/coordinator"
	"github.com/caralabs/carad/internal/generator"
	carahttp "github.com/caralabs/carad/internal/http"
	"github.com/caralabs/carad/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  carad           Start the compliance assistant daemon\n")
			fmt.Fprintf(os.Stderr, "  carad version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("carad by Cara Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until context cancellation.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Build the structured logger
//  3. Create the embedder and answer store
//  4. Create the generation client
//  5. Wire the request coordinator
//  6. Start the HTTP server
//  7. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("Starting carad",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	embedder, err := answerstore.NewOpenAIEmbedder(answerstore.OpenAIEmbedderConfig{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		APIKey:  cfg.Embedding.APIKey.Value(),
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := answerstore.NewStore(cfg.Store, embedder, logger)
	if err != nil {
		return fmt.Errorf("failed to create answer store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close answer store", zap.Error(err))
		}
	}()

	gen, err := generator.NewOpenAIGenerator(generator.OpenAIConfig{
		BaseURL:    cfg.Generator.BaseURL,
		Model:      cfg.Generator.Model,
		APIKey:     cfg.Generator.APIKey.Value(),
		MaxRetries: cfg.Generator.MaxRetries,
		RetryDelay: cfg.Generator.RetryDelay.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	metrics := coordinator.NewMetrics(prometheus.DefaultRegisterer)
	coord, err := coordinator.New(store, gen, coordinator.Config{
		ReuseThreshold:    cfg.Coordinator.ReuseThreshold,
		EntryTTL:          cfg.Coordinator.EntryTTL.Duration(),
		GenerationTimeout: cfg.Generator.Timeout.Duration(),
		ContextDocs:       cfg.Coordinator.ContextDocs,
	}, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	srv, err := carahttp.NewServer(coord, store, logger, &carahttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout.Duration()
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}

	// Let in-flight generation workers finish and persist.
	if err := coord.Close(); err != nil {
		logger.Warn("Coordinator close reported error", zap.Error(err))
	}

	return nil
}
