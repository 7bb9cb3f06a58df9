package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wound-measure/config"
	"wound-measure/internal/api/httpapi"
	"wound-measure/internal/api/telegram"
	"wound-measure/internal/container"
	"wound-measure/internal/infrastructure/roboflow"
	"wound-measure/internal/infrastructure/storage"
	"wound-measure/internal/infrastructure/vision"
	"wound-measure/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New("wound-measure", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Клиент сервиса детекции
	detector := roboflow.NewClient(roboflow.Config{
		APIURL:     cfg.Detection.APIURL,
		APIKey:     cfg.Detection.APIKey,
		Workspace:  cfg.Detection.Workspace,
		Workflow:   cfg.Detection.Workflow,
		Timeout:    cfg.Detection.Timeout,
		MaxRetries: cfg.Detection.MaxRetries,
	}, nil, logger.Named("roboflow"))

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := detector.CheckHealth(healthCtx); err != nil {
		logger.Warn("detection service not available", zap.Error(err))
	}
	cancel()

	appContainer := container.New(
		storage.NewMemoryUserRepository(),
		detector,
		vision.NewQualityGate(cfg.Measurement.MinImageSide),
		cfg.Measurement.StickerDiameterMm,
		logger,
	)

	handler := httpapi.NewHandler(appContainer.MeasurementService, cfg.MaxUploadBytes(), logger.Named("http"))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("detection_url", cfg.Detection.APIURL),
			zap.Float64("sticker_diameter_mm", cfg.Measurement.StickerDiameterMm))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, logger.Named("telegram"))
		if err != nil {
			logger.Fatal("failed to create bot", zap.Error(err))
		}
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
	logger.Info("service stopped")
}
