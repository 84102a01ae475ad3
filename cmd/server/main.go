package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pdfworkflow/internal/api"
	"pdfworkflow/internal/config"
	"pdfworkflow/internal/llm"
	"pdfworkflow/internal/logging"
	"pdfworkflow/internal/pipeline"
	"pdfworkflow/internal/repository"
	"pdfworkflow/internal/services"
	"pdfworkflow/internal/tls"
)

func main() {
	logger := logging.NewLogger()

	envFile := flag.String("env", "", "Path to .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}
	logger.Info("Configuration loaded",
		"storage_root", cfg.Storage.Root,
		"llm_enabled", cfg.LLM.Enabled,
		"history_limit", cfg.Runs.HistoryLimit,
	)

	logger.Info("Starting PDF Workflow Service")

	// Pipeline stages
	var analyzer pipeline.Analyzer
	var matcher pipeline.JobMatcher
	if cfg.LLM.Enabled {
		if cfg.LLM.APIKey == "" {
			logger.Warn("LLM is enabled but no API key is configured; structured analysis will degrade")
		}
		client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxAttempts, logger)
		analyzer = client
		if cfg.LLM.MetiersFile != "" {
			metiers, err := llm.LoadMetiers(cfg.LLM.MetiersFile)
			if err != nil {
				logger.Warn("Occupation reference unavailable; matching disabled", "file", cfg.LLM.MetiersFile, "error", err)
			} else {
				logger.Info("Occupation reference loaded", "file", cfg.LLM.MetiersFile, "count", len(metiers))
				matcher = llm.NewMatcher(client, metiers, logger)
			}
		}
	}
	chain := pipeline.NewChain(
		pipeline.NewExtractor(logger),
		pipeline.NewTransformer(analyzer, matcher, cfg.Transform.TopKeywords, logger),
		pipeline.NewLoader(cfg.Storage.Root, logger),
	)

	// Run registry and runner
	store := repository.NewMemoryRunStore(cfg.Runs.HistoryLimit)
	runner := services.NewRunner(store, chain, cfg.Runs.MaxConcurrent, logger)

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Mount REST API handlers
	apiServer := api.NewServer(runner, logger)
	apiServer.RegisterRoutes(e)

	logger.Info("REST API handlers mounted")

	// Create HTTP server
	addr := cfg.Server.Addr
	if cfg.TLS.Enable {
		addr = ":8443"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				logger.Error("TLS enabled but cert/key file not provided")
				serverErrors <- server.ListenAndServe()
				return
			}
			// generate if missing and hostnames provided
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		// Let in-flight background runs reach a terminal state.
		if err := runner.Close(); err != nil {
			logger.Error("Runner shutdown error", "error", err)
		}

		logger.Info("Server stopped gracefully")
	}
}
