package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/pagination"
)

// Repository wires event persistence helpers.
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

// Create inserts the event row.
func (r *Repository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// FindByID loads the event without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events newest first using keyset pagination.
func (r *Repository) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Event, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists the mutable event columns.
func (r *Repository) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	if err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{
			"name":       event.Name,
			"school":     event.School,
			"shoot_date": event.ShootDate,
			"is_active":  event.IsActive,
		}).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, event.ID)
}
