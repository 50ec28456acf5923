package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/reportsmith/internal/api"
	"github.com/dgallion1/reportsmith/internal/config"
	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/enhance"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/pipeline"
	"github.com/dgallion1/reportsmith/internal/resolve"
	"github.com/joho/godotenv"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.LoadOverlay(); err != nil {
		log.Error("invalid configuration overlay", "path", cfg.OverlayPath, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	llm := genai.NewClient(genai.Options{
		APIKey:     cfg.AnthropicAPIKey,
		Model:      cfg.AnthropicModel,
		BaseURL:    cfg.AnthropicBaseURL,
		Timeout:    cfg.GenerationTimeout,
		MaxRetries: cfg.GenerationMaxRetries,
		MaxTokens:  cfg.EditMaxTokens,
		Logger:     log,
	})

	// Initialize pipeline.
	worker := pipeline.NewWorker(llm, cfg.Templates(), pipeline.Limits{
		AnalysisMaxTokens: cfg.AnalysisMaxTokens,
		ReportMaxTokens:   cfg.ReportMaxTokens,
	}, log)
	orch := pipeline.NewOrchestrator(cfg, worker, log)
	orch.Start(ctx)

	editor := edit.NewEditor(llm, cfg.Palette(), log)

	// Initialize HTTP server. Synchronous generation makes two calls.
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * genai.RetryBudget(cfg.GenerationTimeout, cfg.GenerationMaxRetries)
	}
	srv := api.NewServer(api.Services{
		Orchestrator: orch,
		Resolver:     resolve.New(llm, editor, log),
		Enhancer:     enhance.NewEnhancer(llm, log),
		LLM:          llm,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		llm.Close()
	}()

	log.Info("starting reportsmith", "port", cfg.Port, "model", cfg.AnthropicModel, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
