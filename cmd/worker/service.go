package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/mcastellanos/fotoescolar-backend/internal/photos/consumer"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/pubsub"
	"github.com/mcastellanos/fotoescolar-backend/pkg/storage/gcs"
)

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *db.Client
	PubSub        *pubsub.Client
	GCS           *gcs.Client
	PhotoConsumer *consumer.Consumer
}

// Service runs the watermark pipeline: it consumes photo-uploaded messages
// and writes previews back to storage.
type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	pubsub   *pubsub.Client
	gcs      *gcs.Client
	consumer *consumer.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.GCS == nil {
		return nil, errors.New("gcs client is required")
	}
	if params.PhotoConsumer == nil {
		return nil, errors.New("photo consumer is required")
	}

	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		db:       params.DB,
		pubsub:   params.PubSub,
		gcs:      params.GCS,
		consumer: params.PhotoConsumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "gcs", s.gcs.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	readyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.ensureReadiness(readyCtx); err != nil {
		return err
	}

	s.logg.Info(ctx, "watermark consumer started")
	err := s.consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
	return nil
}

// Close releases every client, reporting all failures rather than the first.
func (s *Service) Close() error {
	var errs error
	if err := s.pubsub.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("closing pubsub: %w", err))
	}
	if err := s.gcs.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("closing gcs: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errs
}
