// Package main is the entry point for the email automation API server.
//
// It loads configuration, wires the campaign provider client, the intent
// catalog and classifier, the reply composer with its generation backend, and
// the batch service, then serves the HTTP API through the core chassis
// (middleware, routing, health checks). SIGINT and SIGTERM trigger a
// graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"github.com/Abhishek-cmd13/Emailautomation/internal/api/handlers"
	"github.com/Abhishek-cmd13/Emailautomation/internal/campaigns"
	"github.com/Abhishek-cmd13/Emailautomation/internal/config"
	"github.com/Abhishek-cmd13/Emailautomation/internal/core"
	"github.com/Abhishek-cmd13/Emailautomation/internal/external"
	"github.com/Abhishek-cmd13/Emailautomation/internal/intent"
	"github.com/Abhishek-cmd13/Emailautomation/internal/reply"
)

// shutdownGrace is how long in-flight requests get to finish after a
// shutdown signal before the listener is torn down.
const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// run owns the whole lifecycle; main only translates its error into an exit
// code.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting email automation service",
		"environment", cfg.Environment,
		"build", cfg.Build.Version+" ("+cfg.Build.Commit+")",
		"port", cfg.Server.Port,
		"completion_provider", cfg.Completion.Provider,
	)

	srv, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}

	return serveHTTP(srv, cfg, logger)
}

// buildServer wires the full dependency graph and mounts all routes:
//
//	config -> provider client -> catalog -> classifier -> generator
//	       -> composer -> campaign service -> handlers -> server
//
// It is separated from run() so tests can build a fully wired server without
// binding a port.
func buildServer(cfg *config.Config, logger *slog.Logger) (*core.Server, error) {
	catalog, err := loadIntentCatalog(cfg.Reply.IntentTablePath)
	if err != nil {
		return nil, fmt.Errorf("loading intent catalog: %w", err)
	}

	classifier, err := intent.NewClassifier(catalog)
	if err != nil {
		return nil, fmt.Errorf("compiling intent classifier: %w", err)
	}

	provider := external.NewInstantlyClient(
		&http.Client{Timeout: cfg.Instantly.Timeout},
		external.InstantlyClientConfig{
			APIKey:             cfg.Instantly.APIKey.Unmask(),
			BaseURL:            cfg.Instantly.BaseURL,
			MinRequestInterval: cfg.Instantly.MinRequestInterval,
			MaxRetries:         cfg.Instantly.MaxRetries,
			CampaignPageSize:   cfg.Instantly.CampaignPageSize,
			UnreadFetchLimit:   cfg.Instantly.UnreadFetchLimit,
			Logger:             logger,
		},
	)

	generator := newGenerator(cfg, catalog, logger)
	logger.Info("reply generation backend selected", "backend", generator.Backend())

	composer := reply.NewComposer(reply.ComposerConfig{
		Catalog:      catalog,
		Generator:    generator,
		CompanyName:  cfg.Reply.CompanyName,
		SupportEmail: cfg.Reply.SupportEmail,
		Logger:       logger,
	})

	svc := campaigns.NewService(campaigns.ServiceConfig{
		Provider:          provider,
		Classifier:        classifier,
		Composer:          composer,
		MaxParallelDrafts: cfg.Reply.MaxParallelDrafts,
		Logger:            logger,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	campaignHandler := handlers.NewCampaignHandler(svc, srv.Validator, logger)
	mailHandler := handlers.NewMailHandler(provider, srv.Validator, logger)
	autoReplyHandler := handlers.NewAutoReplyHandler(svc, srv.Validator, logger)

	srv.RouteRegistrars = []core.RouteRegistrar{
		func(r chi.Router) { r.Route("/campaign", campaignHandler.RegisterRoutes) },
		mailHandler.RegisterRoutes,
		func(r chi.Router) { r.Route("/auto-reply", autoReplyHandler.RegisterRoutes) },
	}

	// The catalog and provider always report health; the completion backend
	// only when it holds an upstream dependency (the template backend cannot
	// fail and would only add noise).
	srv.HealthProbes = []core.HealthProbe{provider, catalog}
	if probe, ok := generator.(core.HealthProbe); ok {
		srv.HealthProbes = append(srv.HealthProbes, probe)
	}

	srv.MountRoutes()
	return srv, nil
}

// loadIntentCatalog returns the embedded intent table, or the operator's
// override when INTENT_TABLE_PATH points at a YAML file.
func loadIntentCatalog(path string) (*intent.Catalog, error) {
	if path != "" {
		return intent.LoadCatalogFromFile(path)
	}
	return intent.LoadCatalog()
}

// newGenerator selects the text-generation backend. The config loader has
// already rejected an openai selection without a credential, so the switch
// only routes.
func newGenerator(cfg *config.Config, catalog *intent.Catalog, logger *slog.Logger) external.TextGenerator {
	if cfg.Completion.Provider == "template" {
		return reply.NewTemplateGenerator(catalog)
	}
	return external.NewOpenAIGenerator(external.OpenAIGeneratorConfig{
		APIKey:      cfg.Completion.OpenAIAPIKey.Unmask(),
		BaseURL:     cfg.Completion.OpenAIBaseURL,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		Timeout:     cfg.Completion.Timeout,
		Logger:      logger,
	})
}

// serveHTTP runs the listener until a shutdown signal or a listener error.
// Responses are gzip-compressed for clients that accept it; batch result
// payloads grow linearly with inbox size and compress well.
func serveHTTP(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           gzhttp.GzipHandler(srv.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Batch processing legitimately holds a response open for minutes;
		// the write deadline sits above the per-request context timeout so
		// the context, not the socket, is what cancels long batches.
		WriteTimeout: cfg.Server.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		// Restore default signal handling so a second signal kills the
		// process instead of being swallowed during shutdown.
		stop()
		logger.Info("shutdown signal received, draining requests", "grace", shutdownGrace)
	case err := <-serveErr:
		// Shutdown has not been called yet, so this is a real listener
		// failure, never http.ErrServerClosed.
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http listener shutdown: %w", err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("releasing server resources: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("shutdown finished with errors", "error", err)
		return err
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger builds the process-wide JSON logger. Unknown level names fall
// back to info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
