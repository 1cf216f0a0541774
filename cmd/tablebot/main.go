// cmd/tablebot/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tablebot/tablebot/pkg/chat"
	"github.com/tablebot/tablebot/pkg/cleaner"
	"github.com/tablebot/tablebot/pkg/config"
	"github.com/tablebot/tablebot/pkg/logging"
	"github.com/tablebot/tablebot/pkg/model"
	"github.com/tablebot/tablebot/pkg/pipeline"
	"github.com/tablebot/tablebot/pkg/retention"
	"github.com/tablebot/tablebot/pkg/storage"
	_ "github.com/tablebot/tablebot/pkg/storage/postgres"
	_ "github.com/tablebot/tablebot/pkg/storage/sqlite"
	"github.com/tablebot/tablebot/pkg/suggest"
	"github.com/tablebot/tablebot/pkg/web"
)

func main() {
	// Missing .env is fine; configuration falls back to the process env.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("fatal error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := storage.Open(ctx, cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return err
	}
	defer records.Close()
	if err := records.Init(ctx); err != nil {
		return err
	}
	logger.Info("record store ready", zap.String("driver", cfg.StorageDriver))

	artifacts, err := storage.NewLocalArtifacts(cfg.OutputDir)
	if err != nil {
		return err
	}

	backend, responder, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}

	var cli *suggest.CLIRunner
	if cfg.SuggestBackend == "ollama" {
		cli = &suggest.CLIRunner{
			Path:    cfg.Ollama.CLIPath,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.CLITimeout,
		}
	}
	suggester := suggest.NewClient(backend, cli, suggest.Options{
		MaxAttempts:    cfg.RetryAttempts,
		BackoffBase:    cfg.BackoffBase,
		AttemptTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
	}, logger)

	runner := pipeline.NewRunner(suggester, records, artifacts, pipeline.Options{
		Policy:     pipelinePolicy(cfg),
		SampleRows: cfg.SampleRows,
	}, logger)

	chatSvc := chat.NewService(records, responder, "", logger)

	if cfg.RetentionDays > 0 {
		sweeper := &retention.Sweeper{
			Dir:      cfg.OutputDir,
			MaxAge:   time.Duration(cfg.RetentionDays) * 24 * time.Hour,
			Interval: cfg.SweepInterval,
			Logger:   logger,
		}
		go sweeper.Run(ctx)
	}

	server := web.NewServer(runner, chatSvc, records, cfg.MaxUploadBytes, logger)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// buildBackends picks the inference backend for guidance and the
// responder for chat. With Ollama the two may run different models, so
// the chat responder gets its own backend instance.
func buildBackends(ctx context.Context, cfg *config.Config) (suggest.Backend, chat.Responder, error) {
	switch cfg.SuggestBackend {
	case "gemini":
		backend, err := suggest.NewGeminiBackend(ctx, suggest.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return backend, backend, nil
	default:
		backend := suggest.NewOllamaBackend(cfg.Ollama.BaseURL, cfg.Ollama.Model, cfg.RequestTimeout)
		responder := suggest.NewOllamaBackend(cfg.Ollama.BaseURL, cfg.ChatModel, cfg.RequestTimeout)
		return backend, responder, nil
	}
}

func pipelinePolicy(cfg *config.Config) cleaner.Policy {
	return cleaner.Policy{
		DropColumnThreshold: cfg.DropColumnThreshold,
		RowDropThreshold:    cfg.RowDropThreshold,
		Duplicates:          model.DuplicatesDrop,
	}
}
