package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/internal/photos"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	"github.com/mcastellanos/fotoescolar-backend/pkg/imaging"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/metrics"
)

const watermarkJob = "preview"

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, previewPath string, width, height int) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type objectStore interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
	WriteObject(ctx context.Context, bucket, object, contentType string, body []byte) error
}

// Consumer turns uploaded originals into watermarked previews.
type Consumer struct {
	repo         repository
	store        objectStore
	subscription *pubsub.Subscriber
	bucket       string
	media        config.MediaConfig
	metrics      *metrics.WatermarkMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(
	repo repository,
	store objectStore,
	subscription *pubsub.Subscriber,
	bucket string,
	media config.MediaConfig,
	wm *metrics.WatermarkMetrics,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, errors.New("photos repository is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if subscription == nil {
		return nil, errors.New("photo subscription is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		repo:         repo,
		store:        store,
		subscription: subscription,
		bucket:       bucket,
		media:        media,
		metrics:      wm,
		logg:         logg,
		now:          time.Now,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	var payload photos.UploadedMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(ctx, "failed to unmarshal photo message", err)
		return processResult{ack: true}
	}
	if payload.PhotoID == uuid.Nil || strings.TrimSpace(payload.StoragePath) == "" {
		c.logg.Error(ctx, "photo message missing id or path", fmt.Errorf("incomplete payload"))
		return processResult{ack: true}
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"photo_id":     payload.PhotoID.String(),
		"storage_path": payload.StoragePath,
	})

	photo, err := c.repo.FindByID(logCtx, payload.PhotoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(logCtx, "photo row not found")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "loading photo failed", err)
		return processResult{nack: true}
	}
	if photo.Status == enums.PhotoStatusProcessed {
		c.logg.Info(logCtx, "photo already processed")
		return processResult{ack: true}
	}

	started := c.now()
	if err := c.generatePreview(logCtx, photo); err != nil {
		c.metrics.IncFailure(watermarkJob)
		c.logg.Error(logCtx, "preview generation failed", err)
		if !errors.Is(err, errBadImage) {
			// Storage and database hiccups are worth a retry.
			return processResult{nack: true}
		}
		if markErr := c.repo.MarkFailed(logCtx, photo.ID); markErr != nil {
			c.logg.Error(logCtx, "marking photo failed errored", markErr)
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}
	c.metrics.ObserveDuration(watermarkJob, c.now().Sub(started))
	c.metrics.IncSuccess(watermarkJob)

	c.logg.Info(logCtx, "photo preview generated")
	return processResult{ack: true}
}

// errBadImage marks originals that can never be rendered; retrying is pointless.
var errBadImage = errors.New("unrenderable image")

func (c *Consumer) generatePreview(ctx context.Context, photo *models.Photo) error {
	original, err := c.store.ReadObject(ctx, c.bucket, photo.StoragePath)
	if err != nil {
		return fmt.Errorf("downloading original: %w", err)
	}

	preview, err := imaging.Preview(original, imaging.PreviewOptions{
		MaxWidth:  uint(c.media.PreviewMaxWidth),
		MaxHeight: uint(c.media.PreviewMaxHeight),
		Quality:   c.media.PreviewQuality,
		Text:      c.media.WatermarkText,
	})
	if err != nil {
		return fmt.Errorf("rendering preview: %w: %v", errBadImage, err)
	}

	previewPath := previewPathFor(photo)
	if err := c.store.WriteObject(ctx, c.bucket, previewPath, "image/jpeg", preview.Data); err != nil {
		return fmt.Errorf("uploading preview: %w", err)
	}

	if err := c.repo.MarkProcessed(ctx, photo.ID, previewPath, preview.Width, preview.Height); err != nil {
		return fmt.Errorf("marking photo processed: %w", err)
	}
	return nil
}

func previewPathFor(photo *models.Photo) string {
	return fmt.Sprintf("photos/%s/preview/%s.jpg", photo.EventID, photo.ID)
}
