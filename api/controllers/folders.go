package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/api/validators"
	"github.com/mcastellanos/fotoescolar-backend/internal/folders"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

type createFolderRequest struct {
	EventID  uuid.UUID  `json:"event_id" validate:"required"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Name     string     `json:"name" validate:"required,min=1,max=200"`
}

func (r createFolderRequest) toInput() folders.CreateFolderInput {
	return folders.CreateFolderInput{
		EventID:  r.EventID,
		ParentID: r.ParentID,
		Name:     r.Name,
	}
}

// CreateFolder adds a folder under an event, optionally nested.
func CreateFolder(svc folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "folder service unavailable"))
			return
		}

		var req createFolderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folder, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, folder)
	}
}

// FolderTree returns an event's full folder hierarchy.
func FolderTree(svc folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "folder service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		tree, err := svc.Tree(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tree)
	}
}
