package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcastellanos/fotoescolar-backend/internal/photos"
	"github.com/mcastellanos/fotoescolar-backend/internal/photos/consumer"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/metrics"
	"github.com/mcastellanos/fotoescolar-backend/pkg/pubsub"
	"github.com/mcastellanos/fotoescolar-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	watermarkMetrics := metrics.NewWatermarkMetrics(prometheus.DefaultRegisterer)
	photoConsumer, err := consumer.NewConsumer(
		photos.NewRepository(dbClient.DB()),
		gcsClient,
		pubsubClient.PhotoSubscription(),
		cfg.GCS.BucketName,
		cfg.Media,
		watermarkMetrics,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create photo consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		GCS:           gcsClient,
		PhotoConsumer: photoConsumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting worker")
	runErr := service.Run(runCtx)

	if err := service.Close(); err != nil {
		logg.Error(ctx, "error closing worker dependencies", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
	logg.Info(ctx, "worker stopped")
}
