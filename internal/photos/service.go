package photos

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type photosRepository interface {
	Create(ctx context.Context, photo *models.Photo) (*models.Photo, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]models.Photo, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, fileSize int64) error
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error
}

type eventLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type folderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error)
}

type uploadSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
}

// Service exposes the photo upload pipeline for the admin API.
type Service interface {
	PresignUpload(ctx context.Context, userID uuid.UUID, input PresignInput) (*PresignOutput, error)
	Finalize(ctx context.Context, photoID uuid.UUID, fileSize int64) error
	SetApproved(ctx context.Context, photoID uuid.UUID, approved bool) error
	Get(ctx context.Context, photoID uuid.UUID) (*models.Photo, error)
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]models.Photo, error)
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	EventID   uuid.UUID
	FolderID  *uuid.UUID
	Filename  string
	MimeType  string
	SizeBytes int64
}

// PresignOutput contains the data returned to the client after creating a photo record.
type PresignOutput struct {
	PhotoID      uuid.UUID `json:"photo_id"`
	StoragePath  string    `json:"storage_path"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type service struct {
	repo      photosRepository
	events    eventLoader
	folders   folderLoader
	signer    uploadSigner
	publisher Publisher
	bucket    string
	uploadTTL time.Duration
	maxBytes  int64
	logg      *logger.Logger
}

// NewService constructs the photo service.
func NewService(
	repo photosRepository,
	events eventLoader,
	folders folderLoader,
	signer uploadSigner,
	publisher Publisher,
	gcsCfg config.GCSConfig,
	mediaCfg config.MediaConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("photos repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("event loader required")
	}
	if folders == nil {
		return nil, fmt.Errorf("folder loader required")
	}
	if signer == nil {
		return nil, fmt.Errorf("gcs signer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("photo publisher required")
	}
	if gcsCfg.BucketName == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	if gcsCfg.UploadURLExpiry <= 0 {
		return nil, fmt.Errorf("upload url expiry must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxBytes := int64(mediaCfg.MaxUploadMB) * 1024 * 1024
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &service{
		repo:      repo,
		events:    events,
		folders:   folders,
		signer:    signer,
		publisher: publisher,
		bucket:    gcsCfg.BucketName,
		uploadTTL: gcsCfg.UploadURLExpiry,
		maxBytes:  maxBytes,
		logg:      logg,
	}, nil
}

func (s *service) PresignUpload(ctx context.Context, userID uuid.UUID, input PresignInput) (*PresignOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	filename := sanitizeFilename(input.Filename)
	if filename == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	ext, ok := allowedMimeTypes[input.MimeType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported mime type")
	}
	if input.SizeBytes <= 0 || input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file size out of range")
	}

	if _, err := s.events.FindByID(ctx, input.EventID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	if input.FolderID != nil {
		folder, err := s.folders.FindByID(ctx, *input.FolderID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading folder")
		}
		if folder.EventID != input.EventID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder belongs to a different event")
		}
	}

	photoID := uuid.New()
	storagePath := fmt.Sprintf("photos/%s/original/%s%s", input.EventID, photoID, ext)

	photo := &models.Photo{
		ID:          photoID,
		EventID:     input.EventID,
		FolderID:    input.FolderID,
		Filename:    filename,
		StoragePath: storagePath,
		MimeType:    input.MimeType,
		FileSize:    input.SizeBytes,
		UploadedBy:  userID,
	}
	if _, err := s.repo.Create(ctx, photo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating photo record")
	}

	signedURL, err := s.signer.SignedURL(s.bucket, storagePath, input.MimeType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing upload url")
	}

	return &PresignOutput{
		PhotoID:      photoID,
		StoragePath:  storagePath,
		SignedPUTURL: signedURL,
		ContentType:  input.MimeType,
		ExpiresAt:    time.Now().UTC().Add(s.uploadTTL),
	}, nil
}

func (s *service) Finalize(ctx context.Context, photoID uuid.UUID, fileSize int64) error {
	if photoID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "photo id is required")
	}

	photo, err := s.repo.FindByID(ctx, photoID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photo")
	}

	if err := s.repo.MarkUploaded(ctx, photoID, fileSize); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking photo uploaded")
	}

	msg := UploadedMessage{
		PhotoID:     photoID,
		EventID:     photo.EventID,
		StoragePath: photo.StoragePath,
		MimeType:    photo.MimeType,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.publisher.PublishUploaded(ctx, msg); err != nil {
		// The photo stays uploaded; the worker can be replayed from the bucket.
		s.logg.Error(ctx, "publishing uploaded photo event failed", err)
	}
	return nil
}

func (s *service) SetApproved(ctx context.Context, photoID uuid.UUID, approved bool) error {
	if photoID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "photo id is required")
	}
	if err := s.repo.SetApproved(ctx, photoID, approved); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating approval")
	}
	return nil
}

func (s *service) Get(ctx context.Context, photoID uuid.UUID) (*models.Photo, error) {
	photo, err := s.repo.FindByID(ctx, photoID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photo")
	}
	return photo, nil
}

func (s *service) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]models.Photo, error) {
	if folderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder id is required")
	}
	rows, err := s.repo.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing photos")
	}
	return rows, nil
}

func sanitizeFilename(name string) string {
	cleaned := strings.TrimSpace(name)
	cleaned = path.Base(cleaned)
	if cleaned == "." || cleaned == "/" {
		return ""
	}
	return cleaned
}
