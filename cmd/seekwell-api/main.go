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

	"github.com/seekwell/seekwell/internal/api"
	"github.com/seekwell/seekwell/internal/auth"
	"github.com/seekwell/seekwell/internal/config"
	"github.com/seekwell/seekwell/internal/dictionary"
	"github.com/seekwell/seekwell/internal/genai"
	"github.com/seekwell/seekwell/internal/observability"
	"github.com/seekwell/seekwell/internal/search"
	"github.com/seekwell/seekwell/internal/translate"
)

func main() {
	cfg, err := config.LoadFromEnv("seekwell-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	store, err := search.NewClient(search.Config{
		URL:                cfg.Elastic.URL,
		Username:           cfg.Elastic.Username,
		Password:           cfg.Elastic.Password,
		InsecureSkipVerify: cfg.Elastic.InsecureSkipVerify,
		Timeout:            cfg.Elastic.Timeout,
		FetchSize:          cfg.Query.FetchSize,
	})
	if err != nil {
		logger.Error("failed to initialize elasticsearch client", slog.Any("error", err))
		os.Exit(1)
	}

	generator, err := genai.NewWatsonxClient(genai.WatsonxConfig{
		Endpoint:    cfg.Watsonx.Endpoint,
		APIKey:      cfg.Watsonx.APIKey,
		ProjectID:   cfg.Watsonx.ProjectID,
		ModelID:     cfg.Watsonx.ModelID,
		IAMEndpoint: cfg.Watsonx.IAMEndpoint,
		Timeout:     cfg.Watsonx.Timeout,
		Defaults: genai.Params{
			DecodingMethod: cfg.Generation.DecodingMethod,
			Temperature:    cfg.Generation.Temperature,
			MaxNewTokens:   cfg.Generation.MaxNewTokens,
			MinNewTokens:   cfg.Generation.MinNewTokens,
			RandomSeed:     cfg.Generation.RandomSeed,
		},
	})
	if err != nil {
		logger.Error("failed to initialize generation client", slog.Any("error", err))
		os.Exit(1)
	}

	builder := &dictionary.Builder{
		Schema: store,
		Processor: &dictionary.FieldProcessor{
			Sampler:         &search.Sampler{Client: store},
			Generator:       generator,
			SampleThreshold: cfg.Dictionary.SampleThreshold,
		},
		Logger:    logger,
		PoolWidth: cfg.Dictionary.PoolWidth,
	}

	snapshot := dictionary.NewSnapshot(nil)
	if cfg.Dictionary.Path != "" {
		dict, err := dictionary.Load(cfg.Dictionary.Path)
		switch {
		case err == nil:
			snapshot.Replace(dict)
			logger.Info("loaded dictionary", slog.String("path", cfg.Dictionary.Path), slog.Int("entries", len(dict)))
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("no dictionary file yet, rebuild it via POST /v1/dictionary/rebuild", slog.String("path", cfg.Dictionary.Path))
		default:
			logger.Error("failed to load dictionary", slog.Any("error", err))
			os.Exit(1)
		}
	}

	deps := &api.Dependencies{
		Logger:            logger,
		Executor:          store,
		Loader:            store,
		Translator:        &translate.Translator{Generator: generator},
		Summarizer:        &translate.Summarizer{Generator: generator, SummaryRows: cfg.Query.SummaryRows},
		Builder:           builder,
		Snapshot:          snapshot,
		DictionaryPath:    cfg.Dictionary.Path,
		Readiness:         store.HealthCheck,
		DependencyTimeout: time.Second,
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
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
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
