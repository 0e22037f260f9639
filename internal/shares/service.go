package shares

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	dbtypes "github.com/mcastellanos/fotoescolar-backend/pkg/db/types"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/security"
)

type eventLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Service creates and administers share tokens.
type Service interface {
	Create(ctx context.Context, createdBy uuid.UUID, input CreateShareInput) (*CreateShareOutput, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ShareToken, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ShareToken, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateShareInput) (*models.ShareToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	IncrementView(ctx context.Context, id uuid.UUID) (bool, error)
}

// AudienceInput names one recipient of a new share.
type AudienceInput struct {
	Type         enums.AudienceType
	SubjectID    *uuid.UUID
	ContactEmail *string
}

// CreateShareInput models an admin's share-creation request.
type CreateShareInput struct {
	EventID            uuid.UUID
	Scope              enums.ShareScope
	AnchorID           *uuid.UUID
	PhotoIDs           []uuid.UUID
	IncludeDescendants bool
	Filters            ScopeFilters
	AllowDownload      bool
	AllowComments      bool
	MaxViews           *int
	ExpiresAt          *time.Time
	Password           *string
	Audiences          []AudienceInput
}

// CreateShareOutput carries the created token's public fields. The plaintext
// password is never echoed; only its hash is stored.
type CreateShareOutput struct {
	Share          *models.ShareToken
	PhotoCount     int
	AudiencesCount int
	// AudienceWarning reports a partial audience-insert failure. The share
	// itself stays valid: audiences are bookkeeping, not access control.
	AudienceWarning string
}

// UpdateShareInput patches mutable token settings. Nil leaves a field as is.
type UpdateShareInput struct {
	AllowDownload *bool
	AllowComments *bool
	MaxViews      *int
	ExpiresAt     *time.Time
	ClearExpiry   bool
}

type service struct {
	repo         *Repository
	resolver     *Resolver
	materializer *Materializer
	events       eventLoader
	tx           txRunner
	passwordCfg  config.PasswordConfig
	logg         *logger.Logger
}

// NewService constructs the share token manager.
func NewService(
	repo *Repository,
	resolver *Resolver,
	materializer *Materializer,
	events eventLoader,
	tx txRunner,
	passwordCfg config.PasswordConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shares repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("scope resolver required")
	}
	if materializer == nil {
		return nil, fmt.Errorf("materializer required")
	}
	if events == nil {
		return nil, fmt.Errorf("event loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         repo,
		resolver:     resolver,
		materializer: materializer,
		events:       events,
		tx:           tx,
		passwordCfg:  passwordCfg,
		logg:         logg,
	}, nil
}

// Create resolves the scope before any write: an invalid anchor aborts with
// no orphan token row. Token and contents commit in one transaction.
func (s *service) Create(ctx context.Context, createdBy uuid.UUID, input CreateShareInput) (*CreateShareOutput, error) {
	if createdBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if input.MaxViews != nil && *input.MaxViews <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_views must be positive")
	}
	if input.ExpiresAt != nil && input.ExpiresAt.Before(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expires_at is in the past")
	}
	for _, audience := range input.Audiences {
		if !audience.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown audience type")
		}
		if audience.Type == enums.AudienceTypeFamily && (audience.SubjectID == nil || *audience.SubjectID == uuid.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "family audience requires a subject id")
		}
	}

	if _, err := s.events.FindByID(ctx, input.EventID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	scopeCfg := ScopeConfig{
		Scope:              input.Scope,
		AnchorID:           input.AnchorID,
		IncludeDescendants: input.IncludeDescendants,
		Filters:            input.Filters,
		PhotoIDs:           input.PhotoIDs,
	}
	if scopeCfg.Scope == enums.ShareScopeEvent && scopeCfg.AnchorID == nil {
		anchor := input.EventID
		scopeCfg.AnchorID = &anchor
	}
	if err := scopeCfg.Validate(); err != nil {
		return nil, err
	}

	photoIDs, err := s.resolver.Resolve(ctx, input.EventID, scopeCfg)
	if err != nil {
		return nil, err
	}

	normalized, err := scopeCfg.Normalize()
	if err != nil {
		return nil, err
	}

	tokenString, err := security.GenerateShareToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating share token")
	}

	var passwordHash *string
	if input.Password != nil && *input.Password != "" {
		hash, err := security.HashPassword(*input.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing share password")
		}
		passwordHash = &hash
	}

	token := &models.ShareToken{
		ID:            uuid.New(),
		Token:         tokenString,
		EventID:       input.EventID,
		Scope:         scopeCfg.Scope,
		FolderID:      folderAnchor(scopeCfg),
		PhotoIDs:      dbtypes.UUIDArray(input.PhotoIDs),
		ScopeConfig:   normalized,
		AllowDownload: input.AllowDownload,
		AllowComments: input.AllowComments,
		MaxViews:      input.MaxViews,
		ExpiresAt:     input.ExpiresAt,
		IsActive:      true,
		PasswordHash:  passwordHash,
		CreatedBy:     createdBy,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, token); err != nil {
			return fmt.Errorf("inserting share token: %w", err)
		}
		return s.materializer.RebuildTx(ctx, tx, token.ID, photoIDs)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating share")
	}

	output := &CreateShareOutput{Share: token, PhotoCount: len(photoIDs)}

	if len(input.Audiences) > 0 {
		rows := make([]models.ShareAudience, 0, len(input.Audiences))
		for _, audience := range input.Audiences {
			rows = append(rows, audienceRow(token.ID, audience.Type, audience.SubjectID, audience.ContactEmail))
		}
		if err := s.repo.InsertAudiences(ctx, rows); err != nil {
			s.logg.Error(s.logg.WithShareID(ctx, token.ID.String()), "inserting share audiences failed", err)
			output.AudienceWarning = "audiences could not be stored; the share is still valid"
		} else {
			output.AudiencesCount = len(rows)
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"share_id": token.ID.String(),
		"event_id": input.EventID.String(),
		"scope":    scopeCfg.Scope.String(),
		"photos":   len(photoIDs),
	}), "share created")

	return output, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ShareToken, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "share id is required")
	}
	token, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeShareNotFound, "share not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading share")
	}
	return token, nil
}

func (s *service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ShareToken, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	rows, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shares")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateShareInput) (*models.ShareToken, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "share id is required")
	}
	if input.MaxViews != nil && *input.MaxViews <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_views must be positive")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.AllowDownload != nil {
		updates["allow_download"] = *input.AllowDownload
	}
	if input.AllowComments != nil {
		updates["allow_comments"] = *input.AllowComments
	}
	if input.MaxViews != nil {
		updates["max_views"] = *input.MaxViews
	}
	if input.ClearExpiry {
		updates["expires_at"] = nil
	} else if input.ExpiresAt != nil {
		updates["expires_at"] = *input.ExpiresAt
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating share")
	}
	return s.Get(ctx, id)
}

func (s *service) Revoke(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "share id is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Revoke(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking share")
	}
	s.logg.Info(s.logg.WithShareID(ctx, id.String()), "share revoked")
	return nil
}

func (s *service) IncrementView(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "share id is required")
	}
	consumed, err := s.repo.IncrementView(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "incrementing view count")
	}
	return consumed, nil
}

func folderAnchor(cfg ScopeConfig) *uuid.UUID {
	if cfg.Scope == enums.ShareScopeFolder {
		return cfg.AnchorID
	}
	return nil
}
