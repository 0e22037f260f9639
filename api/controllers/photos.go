package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/api/middleware"
	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/api/validators"
	"github.com/mcastellanos/fotoescolar-backend/internal/photos"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

type presignUploadRequest struct {
	EventID   uuid.UUID  `json:"event_id" validate:"required"`
	FolderID  *uuid.UUID `json:"folder_id,omitempty"`
	Filename  string     `json:"filename" validate:"required,min=1,max=255"`
	MimeType  string     `json:"mime_type" validate:"required"`
	SizeBytes int64      `json:"size_bytes" validate:"required,gt=0"`
}

func (r presignUploadRequest) toInput() photos.PresignInput {
	return photos.PresignInput{
		EventID:   r.EventID,
		FolderID:  r.FolderID,
		Filename:  r.Filename,
		MimeType:  r.MimeType,
		SizeBytes: r.SizeBytes,
	}
}

type finalizePhotoRequest struct {
	FileSize int64 `json:"file_size" validate:"required,gt=0"`
}

type approvePhotoRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// PresignUpload creates a pending photo record and returns a signed PUT URL
// for the client to upload the original directly to storage.
func PresignUpload(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req presignUploadRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.PresignUpload(r.Context(), userID, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// FinalizePhoto confirms the client finished uploading and hands the photo to
// the processing pipeline.
func FinalizePhoto(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		photoID, err := uuid.Parse(chi.URLParam(r, "photoID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photo id"))
			return
		}

		var req finalizePhotoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Finalize(r.Context(), photoID, req.FileSize); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

// ApprovePhoto toggles a photo's approval flag for filtered shares.
func ApprovePhoto(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		photoID, err := uuid.Parse(chi.URLParam(r, "photoID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photo id"))
			return
		}

		var req approvePhotoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetApproved(r.Context(), photoID, *req.Approved); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

// GetPhoto returns one photo's metadata.
func GetPhoto(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		photoID, err := uuid.Parse(chi.URLParam(r, "photoID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photo id"))
			return
		}

		photo, err := svc.Get(r.Context(), photoID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, photo)
	}
}

// ListFolderPhotos returns all photos in one folder.
func ListFolderPhotos(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		folderID, err := uuid.Parse(chi.URLParam(r, "folderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid folder id"))
			return
		}

		rows, err := svc.ListByFolder(r.Context(), folderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
