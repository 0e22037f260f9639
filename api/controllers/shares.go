package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/api/middleware"
	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/api/validators"
	"github.com/mcastellanos/fotoescolar-backend/internal/shares"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

type shareAudienceRequest struct {
	Type         string     `json:"type" validate:"required"`
	SubjectID    *uuid.UUID `json:"subject_id,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty" validate:"omitempty,email"`
}

type shareFiltersRequest struct {
	ApprovedOnly bool    `json:"approved_only,omitempty"`
	Status       *string `json:"status,omitempty"`
}

type createShareRequest struct {
	EventID            uuid.UUID              `json:"event_id" validate:"required"`
	Scope              string                 `json:"scope" validate:"required"`
	AnchorID           *uuid.UUID             `json:"anchor_id,omitempty"`
	PhotoIDs           []uuid.UUID            `json:"photo_ids,omitempty"`
	IncludeDescendants bool                   `json:"include_descendants,omitempty"`
	Filters            shareFiltersRequest    `json:"filters,omitempty"`
	AllowDownload      bool                   `json:"allow_download,omitempty"`
	AllowComments      bool                   `json:"allow_comments,omitempty"`
	MaxViews           *int                   `json:"max_views,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt          *time.Time             `json:"expires_at,omitempty"`
	Password           *string                `json:"password,omitempty" validate:"omitempty,min=4"`
	Audiences          []shareAudienceRequest `json:"audiences,omitempty"`
}

func (r createShareRequest) toInput() (shares.CreateShareInput, error) {
	scope, err := enums.ParseShareScope(r.Scope)
	if err != nil {
		return shares.CreateShareInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid share scope")
	}

	filters := shares.ScopeFilters{ApprovedOnly: r.Filters.ApprovedOnly}
	if r.Filters.Status != nil {
		status, err := enums.ParsePhotoStatus(*r.Filters.Status)
		if err != nil {
			return shares.CreateShareInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photo status filter")
		}
		filters.Status = &status
	}

	audiences := make([]shares.AudienceInput, 0, len(r.Audiences))
	for _, a := range r.Audiences {
		audienceType, err := enums.ParseAudienceType(a.Type)
		if err != nil {
			return shares.CreateShareInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid audience type")
		}
		audiences = append(audiences, shares.AudienceInput{
			Type:         audienceType,
			SubjectID:    a.SubjectID,
			ContactEmail: a.ContactEmail,
		})
	}

	return shares.CreateShareInput{
		EventID:            r.EventID,
		Scope:              scope,
		AnchorID:           r.AnchorID,
		PhotoIDs:           r.PhotoIDs,
		IncludeDescendants: r.IncludeDescendants,
		Filters:            filters,
		AllowDownload:      r.AllowDownload,
		AllowComments:      r.AllowComments,
		MaxViews:           r.MaxViews,
		ExpiresAt:          r.ExpiresAt,
		Password:           r.Password,
		Audiences:          audiences,
	}, nil
}

type updateShareRequest struct {
	AllowDownload *bool      `json:"allow_download,omitempty"`
	AllowComments *bool      `json:"allow_comments,omitempty"`
	MaxViews      *int       `json:"max_views,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ClearExpiry   bool       `json:"clear_expiry,omitempty"`
}

func (r updateShareRequest) toInput() shares.UpdateShareInput {
	return shares.UpdateShareInput{
		AllowDownload: r.AllowDownload,
		AllowComments: r.AllowComments,
		MaxViews:      r.MaxViews,
		ExpiresAt:     r.ExpiresAt,
		ClearExpiry:   r.ClearExpiry,
	}
}

// shareDTO is the admin-facing view of a token. The password hash never
// leaves the service.
type shareDTO struct {
	ID            uuid.UUID        `json:"id"`
	Token         string           `json:"token"`
	EventID       uuid.UUID        `json:"event_id"`
	Scope         enums.ShareScope `json:"scope"`
	AllowDownload bool             `json:"allow_download"`
	AllowComments bool             `json:"allow_comments"`
	ViewCount     int              `json:"view_count"`
	MaxViews      *int             `json:"max_views,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	IsActive      bool             `json:"is_active"`
	HasPassword   bool             `json:"has_password"`
	CreatedBy     uuid.UUID        `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func shareToDTO(share *models.ShareToken) shareDTO {
	return shareDTO{
		ID:            share.ID,
		Token:         share.Token,
		EventID:       share.EventID,
		Scope:         share.Scope,
		AllowDownload: share.AllowDownload,
		AllowComments: share.AllowComments,
		ViewCount:     share.ViewCount,
		MaxViews:      share.MaxViews,
		ExpiresAt:     share.ExpiresAt,
		IsActive:      share.IsActive,
		HasPassword:   share.PasswordHash != nil,
		CreatedBy:     share.CreatedBy,
		CreatedAt:     share.CreatedAt,
		UpdatedAt:     share.UpdatedAt,
	}
}

// CreateShare mints a share token over the requested scope.
func CreateShare(svc shares.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req createShareRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"share":           shareToDTO(out.Share),
			"photo_count":     out.PhotoCount,
			"audiences_count": out.AudiencesCount,
		}
		if out.AudienceWarning != "" {
			payload["audience_warning"] = out.AudienceWarning
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}

// GetShare returns one share token by id.
func GetShare(svc shares.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "shareID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid share id"))
			return
		}

		share, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, shareToDTO(share))
	}
}

// ListEventShares returns every share minted for an event.
func ListEventShares(svc shares.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		rows, err := svc.ListByEvent(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos := make([]shareDTO, 0, len(rows))
		for i := range rows {
			dtos = append(dtos, shareToDTO(&rows[i]))
		}
		responses.WriteSuccess(w, dtos)
	}
}

// UpdateShare patches mutable share settings.
func UpdateShare(svc shares.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "shareID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid share id"))
			return
		}

		var req updateShareRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		share, err := svc.Update(r.Context(), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, shareToDTO(share))
	}
}

// RevokeShare deactivates a share token immediately.
func RevokeShare(svc shares.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "shareID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid share id"))
			return
		}

		if err := svc.Revoke(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
