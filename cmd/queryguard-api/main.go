package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/queryguard/queryguard/internal/api"
	"github.com/queryguard/queryguard/internal/auth"
	"github.com/queryguard/queryguard/internal/config"
	"github.com/queryguard/queryguard/internal/format"
	"github.com/queryguard/queryguard/internal/gate"
	"github.com/queryguard/queryguard/internal/nl2sql"
	"github.com/queryguard/queryguard/internal/observability"
	"github.com/queryguard/queryguard/internal/pipeline"
	"github.com/queryguard/queryguard/internal/source"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("queryguard-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	src, err := source.Resolve(source.Config{
		Kind:        cfg.Source.Kind,
		SQLitePath:  cfg.Source.SQLitePath,
		DuckDBPath:  cfg.Source.DuckDBPath,
		PostgresDSN: cfg.Source.PostgresDSN,
	})
	if err != nil {
		logger.Error("failed to resolve data source", slog.Any("error", err))
		os.Exit(1)
	}

	var generator nl2sql.Generator
	if cfg.AI.APIKey != "" {
		generator, err = nl2sql.NewOpenAIGenerator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize SQL generator", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("no AI api key configured; /v1/ask will reject data questions")
	}

	var extractor gate.SlotExtractor
	if cfg.AI.ExtractorEnabled && cfg.AI.APIKey != "" {
		extractor, err = gate.NewOpenAIExtractor(gate.OpenAIExtractorConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize slot extractor", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pipe := &pipeline.Pipeline{
		Source:    src,
		Generator: generator,
		Gate:      gate.New(extractor),
		Logger:    logger,
		RowCap:    cfg.Pipeline.RowCap,
		FormatOptions: format.Options{
			MaxPreviewRows: cfg.Pipeline.PreviewRows,
			MaxColWidth:    cfg.Pipeline.ColWidth,
		},
		ChartMaxPoints: cfg.Pipeline.ChartMaxPoints,
	}

	deps := api.Dependencies{
		Logger:   logger,
		Pipeline: pipe,
		Source:   src,
		RowCap:   cfg.Pipeline.RowCap,
		Readiness: api.CombineReadinessChecks(
			api.CheckSourceConfig(cfg),
			api.CheckSourcePing(src),
		),
		DependencyTimout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("source", src.Kind()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
