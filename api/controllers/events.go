package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/api/middleware"
	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/api/validators"
	"github.com/mcastellanos/fotoescolar-backend/internal/events"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/pagination"
)

type createEventRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=200"`
	School    *string    `json:"school,omitempty"`
	ShootDate *time.Time `json:"shoot_date,omitempty"`
}

func (r createEventRequest) toInput() events.CreateEventInput {
	return events.CreateEventInput{
		Name:      r.Name,
		School:    r.School,
		ShootDate: r.ShootDate,
	}
}

type updateEventRequest struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	School    *string    `json:"school,omitempty"`
	ShootDate *time.Time `json:"shoot_date,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}

func (r updateEventRequest) toInput() events.UpdateEventInput {
	return events.UpdateEventInput{
		Name:      r.Name,
		School:    r.School,
		ShootDate: r.ShootDate,
		IsActive:  r.IsActive,
	}
}

// CreateEvent registers a new photo session for the authenticated operator.
func CreateEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req createEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Create(r.Context(), userID, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

// GetEvent returns one event by id.
func GetEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		event, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, event)
	}
}

// ListEvents returns a cursor-paginated page of events, newest first.
func ListEvents(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"events":      result.Events,
			"next_cursor": result.NextCursor,
		})
	}
}

// UpdateEvent patches mutable event fields.
func UpdateEvent(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		var req updateEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Update(r.Context(), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, event)
	}
}
