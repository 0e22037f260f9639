package shares

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

// Repository wires share token, contents-cache, and audience persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the share token row.
func (r *Repository) Create(ctx context.Context, token *models.ShareToken) (*models.ShareToken, error) {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// FindByID loads a share token row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShareToken, error) {
	var token models.ShareToken
	if err := r.db.WithContext(ctx).First(&token, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// FindByToken loads a share token row by its opaque token string.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.ShareToken, error) {
	var row models.ShareToken
	if err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByEvent returns an event's share tokens, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ShareToken, error) {
	var rows []models.ShareToken
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update applies the provided column map to the token row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.ShareToken{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// IncrementView consumes one view atomically at the store. The guard refuses
// the increment once max_views is reached, so view_count can never overshoot
// even under concurrent validations. Returns whether a view was consumed.
func (r *Repository) IncrementView(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ShareToken{}).
		Where("id = ? AND (max_views IS NULL OR view_count < max_views)", id).
		Updates(map[string]any{
			"view_count": gorm.Expr("view_count + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Revoke flips is_active off. There is no unrevoke; a new share must be
// created if access should be restored.
func (r *Repository) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ShareToken{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}

// DeleteContents drops every materialized row of the token. No-op when the
// cache is already empty.
func (r *Repository) DeleteContents(ctx context.Context, tokenID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("share_token_id = ?", tokenID).
		Delete(&models.ShareTokenContent{}).Error
}

// InsertContents bulk-inserts the materialized photo set.
func (r *Repository) InsertContents(ctx context.Context, rows []models.ShareTokenContent) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ContentPhotoIDs returns the materialized photo ids of the token, sorted.
func (r *Repository) ContentPhotoIDs(ctx context.Context, tokenID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ShareTokenContent{}).
		Where("share_token_id = ?", tokenID).
		Order("photo_id ASC").
		Pluck("photo_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertAudiences stores the named recipients of a share.
func (r *Repository) InsertAudiences(ctx context.Context, rows []models.ShareAudience) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// CountAudiences returns how many recipients the share names.
func (r *Repository) CountAudiences(ctx context.Context, tokenID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ShareAudience{}).
		Where("share_token_id = ?", tokenID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListAudiences returns the share's recipients in creation order.
func (r *Repository) ListAudiences(ctx context.Context, tokenID uuid.UUID) ([]models.ShareAudience, error) {
	var rows []models.ShareAudience
	if err := r.db.WithContext(ctx).
		Where("share_token_id = ?", tokenID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// audienceRow builds a ShareAudience from request input.
func audienceRow(tokenID uuid.UUID, audienceType enums.AudienceType, subjectID *uuid.UUID, email *string) models.ShareAudience {
	return models.ShareAudience{
		ID:           uuid.New(),
		ShareTokenID: tokenID,
		Type:         audienceType,
		SubjectID:    subjectID,
		ContactEmail: email,
	}
}
