package folders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
)

// Repository wires folder persistence helpers.
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

// Create inserts the folder row.
func (r *Repository) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	if err := r.db.WithContext(ctx).Create(folder).Error; err != nil {
		return nil, err
	}
	return folder, nil
}

// FindByID loads the folder without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	if err := r.db.WithContext(ctx).First(&folder, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListByEvent returns all folders of an event ordered depth-first friendly
// (by depth, then name) so callers can assemble the tree.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Folder, error) {
	var rows []models.Folder
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("depth ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

const descendantQuery = `
WITH RECURSIVE descendants(id) AS (
  SELECT id FROM folders WHERE id = ?
  UNION ALL
  SELECT f.id FROM folders f JOIN descendants d ON f.parent_id = d.id
)
SELECT id FROM descendants
`

// DescendantIDs returns the folder id plus every folder nested underneath it.
// The recursive CTE runs identically on Postgres and SQLite.
func (r *Repository) DescendantIDs(ctx context.Context, folderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Raw(descendantQuery, folderID).
		Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
