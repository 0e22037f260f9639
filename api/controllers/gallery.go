package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/api/validators"
	"github.com/mcastellanos/fotoescolar-backend/internal/shares"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

// GalleryValidator grants or denies access for a presented token.
type GalleryValidator interface {
	Validate(ctx context.Context, token, password string) (*shares.ValidationResult, error)
}

type readURLSigner interface {
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DefaultBucket() string
}

type galleryValidateRequest struct {
	Password string `json:"password,omitempty"`
}

type galleryPhoto struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	PreviewURL  string    `json:"preview_url"`
	DownloadURL string    `json:"download_url,omitempty"`
}

type galleryResponse struct {
	ShareTokenID  uuid.UUID      `json:"share_token_id"`
	EventID       uuid.UUID      `json:"event_id"`
	AllowDownload bool           `json:"allow_download"`
	AllowComments bool           `json:"allow_comments"`
	Photos        []galleryPhoto `json:"photos"`
}

// ValidateGallery is the public gallery entry point. The token rides the URL,
// the optional password rides the body, and a grant returns signed preview
// URLs for every photo in scope. Denials use share-specific error codes so a
// visitor cannot distinguish a malformed token from an unknown one.
func ValidateGallery(validator GalleryValidator, signer readURLSigner, cfg config.GCSConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if validator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery validator unavailable"))
			return
		}
		if signer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storage signer unavailable"))
			return
		}

		token, err := validators.ShareToken(chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req galleryValidateRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := validator.Validate(r.Context(), token, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bucket := signer.DefaultBucket()
		resp := galleryResponse{
			ShareTokenID:  result.ShareTokenID,
			EventID:       result.EventID,
			AllowDownload: result.AllowDownload,
			AllowComments: result.AllowComments,
			Photos:        make([]galleryPhoto, 0, len(result.Photos)),
		}
		for i := range result.Photos {
			photo := &result.Photos[i]

			previewPath := photo.StoragePath
			if photo.PreviewPath != nil && *photo.PreviewPath != "" {
				previewPath = *photo.PreviewPath
			}
			previewURL, err := signer.SignedReadURL(bucket, previewPath, cfg.DownloadURLExpiry)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing preview url"))
				return
			}

			entry := galleryPhoto{
				ID:         photo.ID,
				Filename:   photo.Filename,
				Width:      photo.Width,
				Height:     photo.Height,
				PreviewURL: previewURL,
			}
			if result.AllowDownload {
				downloadURL, err := signer.SignedReadURL(bucket, photo.StoragePath, cfg.DownloadURLExpiry)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing download url"))
					return
				}
				entry.DownloadURL = downloadURL
			}
			resp.Photos = append(resp.Photos, entry)
		}

		responses.WriteSuccess(w, resp)
	}
}
