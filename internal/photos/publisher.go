package photos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// UploadedMessage is the payload published when an original lands in the bucket.
type UploadedMessage struct {
	PhotoID     uuid.UUID `json:"photo_id"`
	EventID     uuid.UUID `json:"event_id"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Publisher pushes uploaded-photo events.
type Publisher interface {
	PublishUploaded(ctx context.Context, msg UploadedMessage) error
}

type gcpPublisher struct {
	publisher *gcppubsub.Publisher
}

// NewGCPPublisher adapts a Pub/Sub publisher handle for the photos service.
func NewGCPPublisher(publisher *gcppubsub.Publisher) Publisher {
	return &gcpPublisher{publisher: publisher}
}

func (p *gcpPublisher) PublishUploaded(ctx context.Context, msg UploadedMessage) error {
	if p == nil || p.publisher == nil {
		return errors.New("pubsub publisher not configured")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding uploaded message: %w", err)
	}
	result := p.publisher.Publish(ctx, &gcppubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing uploaded message: %w", err)
	}
	return nil
}
