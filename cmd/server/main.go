package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/app"
	"github.com/kitbuilder587/finanalyst/internal/config"
	"github.com/kitbuilder587/finanalyst/internal/httpapi"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/ratelimit"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cfg.Log.Service = "server"
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	a, err := app.Build(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.Evaluator.Run(ctx)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpapi.NewHandler(a.Analysis, a.Portfolio, a.Alerts, a.Status, logger)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler:  handler,
		Logger:   logger,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Limiter:  ratelimit.NewWithContext(ctx, ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute}),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
