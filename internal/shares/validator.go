package shares

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/metrics"
	"github.com/mcastellanos/fotoescolar-backend/pkg/security"
)

// Validation outcomes, used as metric labels and analytics rows.
const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeRevoked      = "revoked"
	OutcomeExpired      = "expired"
	OutcomeViewLimit    = "view_limit"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// AccessRecord is one share-access analytics row. Emission is best-effort
// and never blocks or fails the validation response.
type AccessRecord struct {
	ShareTokenID uuid.UUID
	EventID      uuid.UUID
	Outcome      string
	PhotoCount   int
	OccurredAt   time.Time
}

type accessRecorder interface {
	RecordAccess(ctx context.Context, record AccessRecord)
}

type photoLoader interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error)
}

// ValidationResult is what a visitor with a valid token gets back.
type ValidationResult struct {
	ShareTokenID   uuid.UUID
	EventID        uuid.UUID
	ScopeConfig    json.RawMessage
	Photos         []models.Photo
	AudiencesCount int64
	AllowDownload  bool
	AllowComments  bool
}

// Validator decides whether a presented token currently grants access.
type Validator struct {
	repo     *Repository
	resolver *Resolver
	photos   photoLoader
	recorder accessRecorder
	metrics  *metrics.ShareMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewValidator constructs the access validator. recorder and shareMetrics may
// be nil; both are observability, not access control.
func NewValidator(
	repo *Repository,
	resolver *Resolver,
	photos photoLoader,
	recorder accessRecorder,
	shareMetrics *metrics.ShareMetrics,
	logg *logger.Logger,
) (*Validator, error) {
	if repo == nil {
		return nil, fmt.Errorf("shares repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("scope resolver required")
	}
	if photos == nil {
		return nil, fmt.Errorf("photo loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Validator{
		repo:     repo,
		resolver: resolver,
		photos:   photos,
		recorder: recorder,
		metrics:  shareMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Validate applies the ordered access checks and, on success, consumes one
// view and returns the granted photo set. A failed check never mutates state:
// in particular it never increments the view counter.
func (v *Validator) Validate(ctx context.Context, token, password string) (*ValidationResult, error) {
	if token == "" {
		return nil, v.deny(ctx, nil, OutcomeNotFound, pkgerrors.CodeShareNotFound, "share not found")
	}

	share, err := v.repo.FindByToken(ctx, token)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, v.deny(ctx, nil, OutcomeNotFound, pkgerrors.CodeShareNotFound, "share not found")
		}
		v.metrics.IncValidation(OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading share")
	}

	ctx = v.logg.WithShareID(ctx, share.ID.String())

	if !share.IsActive {
		return nil, v.deny(ctx, share, OutcomeRevoked, pkgerrors.CodeShareRevoked, "share has been revoked")
	}
	if share.IsExpired(v.now()) {
		return nil, v.deny(ctx, share, OutcomeExpired, pkgerrors.CodeShareExpired, "share has expired")
	}
	if share.ViewLimitReached() {
		return nil, v.deny(ctx, share, OutcomeViewLimit, pkgerrors.CodeShareViewLimit, "share view limit reached")
	}
	if share.PasswordHash != nil {
		if password == "" {
			return nil, v.deny(ctx, share, OutcomeUnauthorized, pkgerrors.CodeShareUnauthorized, "password required")
		}
		match, err := security.VerifyPassword(password, *share.PasswordHash)
		if err != nil {
			v.metrics.IncValidation(OutcomeError)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying share password")
		}
		if !match {
			return nil, v.deny(ctx, share, OutcomeUnauthorized, pkgerrors.CodeShareUnauthorized, "incorrect password")
		}
	}

	photoIDs, err := v.grantedPhotoIDs(ctx, share)
	if err != nil {
		v.metrics.IncValidation(OutcomeError)
		return nil, err
	}

	photoRows, err := v.photos.ListByIDs(ctx, photoIDs)
	if err != nil {
		v.metrics.IncValidation(OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading share photos")
	}

	audiences, err := v.repo.CountAudiences(ctx, share.ID)
	if err != nil {
		v.metrics.IncValidation(OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting audiences")
	}

	// The store-side guard is the arbiter under concurrency: losing the race
	// on the final view is a view-limit denial, not a success.
	consumed, err := v.repo.IncrementView(ctx, share.ID)
	if err != nil {
		v.metrics.IncValidation(OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consuming view")
	}
	if !consumed {
		return nil, v.deny(ctx, share, OutcomeViewLimit, pkgerrors.CodeShareViewLimit, "share view limit reached")
	}

	v.metrics.IncValidation(OutcomeSuccess)
	v.metrics.IncView()
	v.record(ctx, share, OutcomeSuccess, len(photoRows))

	return &ValidationResult{
		ShareTokenID:   share.ID,
		EventID:        share.EventID,
		ScopeConfig:    share.ScopeConfig,
		Photos:         photoRows,
		AudiencesCount: audiences,
		AllowDownload:  share.AllowDownload,
		AllowComments:  share.AllowComments,
	}, nil
}

// grantedPhotoIDs reads the materialized cache, falling back to live
// resolution when it is empty. The fallback keeps validation correct if
// materialization was skipped or failed, at extra latency for that request.
func (v *Validator) grantedPhotoIDs(ctx context.Context, share *models.ShareToken) ([]uuid.UUID, error) {
	ids, err := v.repo.ContentPhotoIDs(ctx, share.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading share contents")
	}
	if len(ids) > 0 {
		return ids, nil
	}

	cfg, err := ParseScopeConfig(share.ScopeConfig)
	if err != nil {
		return nil, err
	}
	cfg.PhotoIDs = share.PhotoIDs
	resolved, err := v.resolver.Resolve(ctx, share.EventID, cfg)
	if err != nil {
		return nil, err
	}
	if len(resolved) > 0 {
		v.logg.Warn(ctx, "share contents cache was empty; resolved live")
	}
	return resolved, nil
}

func (v *Validator) deny(ctx context.Context, share *models.ShareToken, outcome string, code pkgerrors.Code, msg string) error {
	v.metrics.IncValidation(outcome)
	v.record(ctx, share, outcome, 0)
	return pkgerrors.New(code, msg)
}

func (v *Validator) record(ctx context.Context, share *models.ShareToken, outcome string, photoCount int) {
	if v.recorder == nil || share == nil {
		return
	}
	v.recorder.RecordAccess(ctx, AccessRecord{
		ShareTokenID: share.ID,
		EventID:      share.EventID,
		Outcome:      outcome,
		PhotoCount:   photoCount,
		OccurredAt:   v.now().UTC(),
	})
}
