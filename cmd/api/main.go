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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcastellanos/fotoescolar-backend/api/routes"
	"github.com/mcastellanos/fotoescolar-backend/internal/analytics"
	"github.com/mcastellanos/fotoescolar-backend/internal/auth"
	"github.com/mcastellanos/fotoescolar-backend/internal/events"
	"github.com/mcastellanos/fotoescolar-backend/internal/folders"
	"github.com/mcastellanos/fotoescolar-backend/internal/orders"
	"github.com/mcastellanos/fotoescolar-backend/internal/photos"
	"github.com/mcastellanos/fotoescolar-backend/internal/shares"
	"github.com/mcastellanos/fotoescolar-backend/internal/subjects"
	"github.com/mcastellanos/fotoescolar-backend/internal/users"
	mercadopagowebhook "github.com/mcastellanos/fotoescolar-backend/internal/webhooks/mercadopago"
	"github.com/mcastellanos/fotoescolar-backend/pkg/auth/session"
	"github.com/mcastellanos/fotoescolar-backend/pkg/bigquery"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/metrics"
	"github.com/mcastellanos/fotoescolar-backend/pkg/migrate"
	"github.com/mcastellanos/fotoescolar-backend/pkg/pubsub"
	"github.com/mcastellanos/fotoescolar-backend/pkg/redis"
	"github.com/mcastellanos/fotoescolar-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
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
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing gcs", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "error closing bigquery", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	eventRepo := events.NewRepository(gormDB)
	folderRepo := folders.NewRepository(gormDB)
	photoRepo := photos.NewRepository(gormDB)
	subjectRepo := subjects.NewRepository(gormDB)
	shareRepo := shares.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	eventsService, err := events.NewService(eventRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create events service", err)
		os.Exit(1)
	}

	foldersService, err := folders.NewService(folderRepo, eventRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create folders service", err)
		os.Exit(1)
	}

	photosService, err := photos.NewService(
		photoRepo,
		eventRepo,
		folderRepo,
		gcsClient,
		photos.NewGCPPublisher(pubsubClient.PhotoPublisher()),
		cfg.GCS,
		cfg.Media,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create photos service", err)
		os.Exit(1)
	}

	subjectsService, err := subjects.NewService(subjectRepo, eventRepo, photoRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create subjects service", err)
		os.Exit(1)
	}

	resolver, err := shares.NewResolver(photoRepo, folderRepo)
	if err != nil {
		logg.Error(ctx, "failed to create scope resolver", err)
		os.Exit(1)
	}
	materializer, err := shares.NewMaterializer(shareRepo, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create share materializer", err)
		os.Exit(1)
	}
	sharesService, err := shares.NewService(shareRepo, resolver, materializer, eventRepo, dbClient, cfg.Password, logg)
	if err != nil {
		logg.Error(ctx, "failed to create shares service", err)
		os.Exit(1)
	}

	accessWriter, err := analytics.NewWriter(bqClient, analytics.WriterConfig{Table: cfg.BigQuery.AccessEventsTable})
	if err != nil {
		logg.Error(ctx, "failed to create access event writer", err)
		os.Exit(1)
	}
	accessRecorder, err := analytics.NewRecorder(accessWriter, logg, analytics.RecorderOptions{})
	if err != nil {
		logg.Error(ctx, "failed to create access recorder", err)
		os.Exit(1)
	}

	shareMetrics := metrics.NewShareMetrics(prometheus.DefaultRegisterer)
	galleryValidator, err := shares.NewValidator(shareRepo, resolver, photoRepo, accessRecorder, shareMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create gallery validator", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orderRepo, shareRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	mpVerifier, err := mercadopagowebhook.NewVerifier(cfg.MercadoPago.WebhookSecret)
	if err != nil {
		logg.Error(ctx, "failed to create webhook verifier", err)
		os.Exit(1)
	}
	mpClient, err := mercadopagowebhook.NewClient(cfg.MercadoPago)
	if err != nil {
		logg.Error(ctx, "failed to create mercadopago client", err)
		os.Exit(1)
	}
	mpGuard, err := mercadopagowebhook.NewIdempotencyGuard(redisClient, cfg.Share.WebhookIdempotencyTTL, "mp-webhook")
	if err != nil {
		logg.Error(ctx, "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	mpService, err := mercadopagowebhook.NewService(mercadopagowebhook.ServiceParams{
		Orders:   orderRepo,
		Payments: mpClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		if err := accessRecorder.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "access recorder stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			gcsClient,
			bqClient,
			sessionManager,
			authService,
			eventsService,
			foldersService,
			photosService,
			subjectsService,
			sharesService,
			galleryValidator,
			ordersService,
			mpService,
			mpVerifier,
			mpGuard,
		),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(startCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "error shutting down api server", err)
		}
	}

	<-recorderDone
	logg.Info(startCtx, "api server stopped")
}
