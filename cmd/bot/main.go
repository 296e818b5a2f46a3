package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/app"
	"github.com/kitbuilder587/finanalyst/internal/backend"
	"github.com/kitbuilder587/finanalyst/internal/config"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	cfg.Log.Service = "bot"
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		b         telegram.Backend
		pipeline  *app.App
		err       error
		inProcess = cfg.BackendURL == ""
	)
	if inProcess {
		for _, w := range cfg.Warnings() {
			logger.Warn(w)
		}
		pipeline, err = app.Build(ctx, cfg, logger, m)
		if err != nil {
			return err
		}
		defer pipeline.Close()
		b = backend.NewLocal(pipeline.Analysis, pipeline.Portfolio, pipeline.Alerts, pipeline.Status)
		logger.Info("running analysis pipeline in process")
	} else {
		b = backend.New(backend.Config{BaseURL: cfg.BackendURL}, logger)
		logger.Info("using remote backend", zap.String("backend_url", cfg.BackendURL))
	}

	bot, err := telegram.New(ctx, telegram.BotConfig{
		Token:             cfg.Telegram.Token,
		Debug:             cfg.Log.Level == "debug",
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	}, b, logger, m)
	if err != nil {
		return err
	}

	// уведомления о сработавших алертах есть только в in-process режиме
	if inProcess {
		go pipeline.Evaluator.OnTrigger(bot.NotifyAlert).Run(ctx)
	}

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("bot stopped")
	return nil
}
