package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/seekwell/seekwell/internal/config"
	"github.com/seekwell/seekwell/internal/dictionary"
	"github.com/seekwell/seekwell/internal/genai"
	"github.com/seekwell/seekwell/internal/observability"
	"github.com/seekwell/seekwell/internal/search"
)

// seekwell-dictionary builds the metadata dictionary and writes it to disk.
// Without a schedule it builds once and exits; with one it keeps rebuilding
// on the cron schedule until terminated.
func main() {
	out := flag.String("out", "", "dictionary output path (overrides the configured path)")
	schedule := flag.String("cron", "", "cron schedule for periodic rebuilds (overrides the configured schedule)")
	flag.Parse()

	cfg, err := config.LoadFromEnv("seekwell-dictionary")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	path := cfg.Dictionary.Path
	if *out != "" {
		path = *out
	}
	if path == "" {
		logger.Error("dictionary output path is required")
		os.Exit(1)
	}
	rebuildCron := cfg.Dictionary.RebuildCron
	if *schedule != "" {
		rebuildCron = *schedule
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rebuild := func() error {
		dict, err := builder.Build(ctx)
		if err != nil {
			return err
		}
		if err := dictionary.Save(path, dict); err != nil {
			return err
		}
		logger.Info("dictionary written", slog.String("path", path), slog.Int("entries", len(dict)))
		return nil
	}

	if rebuildCron == "" {
		if err := rebuild(); err != nil {
			logger.Error("dictionary build failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(rebuildCron, func() {
		if err := rebuild(); err != nil {
			logger.Error("scheduled dictionary rebuild failed", slog.Any("error", err))
		}
	}); err != nil {
		logger.Error("invalid cron schedule", slog.String("schedule", rebuildCron), slog.Any("error", err))
		os.Exit(1)
	}

	// An initial build, so the schedule only maintains an existing file.
	if err := rebuild(); err != nil {
		logger.Error("initial dictionary build failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("rebuild schedule active", slog.String("schedule", rebuildCron))
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
}
