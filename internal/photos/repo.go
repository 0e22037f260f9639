package photos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

// Filters narrow photo queries when resolving share scopes.
type Filters struct {
	ApprovedOnly bool
	Status       *enums.PhotoStatus
}

// Repository wires photo persistence helpers.
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

// Create inserts the photo row.
func (r *Repository) Create(ctx context.Context, photo *models.Photo) (*models.Photo, error) {
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return nil, err
	}
	return photo, nil
}

// FindByID loads the photo without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).First(&photo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

// ListByIDs loads photo rows for the given ids, preserving no particular order.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	if len(ids) == 0 {
		return []models.Photo{}, nil
	}
	var rows []models.Photo
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByFolder returns photos of one folder ordered by filename.
func (r *Repository) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]models.Photo, error) {
	var rows []models.Photo
	if err := r.db.WithContext(ctx).
		Where("folder_id = ?", folderID).
		Order("filename ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// IDsByEvent returns photo ids of the event, filter-narrowed and sorted for
// deterministic scope resolution.
func (r *Repository) IDsByEvent(ctx context.Context, eventID uuid.UUID, filters Filters) ([]uuid.UUID, error) {
	query := r.applyFilters(r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("event_id = ?", eventID), filters)

	var ids []uuid.UUID
	if err := query.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// IDsByFolders returns photo ids across the folder id set, filter-narrowed and
// sorted for deterministic scope resolution.
func (r *Repository) IDsByFolders(ctx context.Context, folderIDs []uuid.UUID, filters Filters) ([]uuid.UUID, error) {
	if len(folderIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	query := r.applyFilters(r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("folder_id IN ?", folderIDs), filters)

	var ids []uuid.UUID
	if err := query.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistingIDsInEvent narrows the candidate ids to those that exist inside the
// event, filter-narrowed and sorted.
func (r *Repository) ExistingIDsInEvent(ctx context.Context, eventID uuid.UUID, candidates []uuid.UUID, filters Filters) ([]uuid.UUID, error) {
	if len(candidates) == 0 {
		return []uuid.UUID{}, nil
	}
	query := r.applyFilters(r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("event_id = ? AND id IN ?", eventID, candidates), filters)

	var ids []uuid.UUID
	if err := query.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.ApprovedOnly {
		query = query.Where("approved = ?", true)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}

// MarkUploaded flips a pending photo to uploaded once the client finished its PUT.
func (r *Repository) MarkUploaded(ctx context.Context, id uuid.UUID, fileSize int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ? AND status = ?", id, enums.PhotoStatusPending).
		Updates(map[string]any{
			"status":     enums.PhotoStatusUploaded,
			"file_size":  fileSize,
			"updated_at": time.Now().UTC(),
		}).Error
}

// MarkProcessed records the preview output of the watermark worker.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, previewPath string, width, height int) error {
	return r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.PhotoStatusProcessed,
			"preview_path": previewPath,
			"width":        width,
			"height":       height,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// MarkFailed records a processing failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.PhotoStatusFailed,
			"updated_at": time.Now().UTC(),
		}).Error
}

// SetApproved updates the curation flag.
func (r *Repository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ?", id).
		Update("approved", approved).Error
}
