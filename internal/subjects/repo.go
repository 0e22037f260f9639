package subjects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
)

// Repository wires subject and tagging persistence helpers.
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

// Create inserts the subject row.
func (r *Repository) Create(ctx context.Context, subject *models.Subject) (*models.Subject, error) {
	if err := r.db.WithContext(ctx).Create(subject).Error; err != nil {
		return nil, err
	}
	return subject, nil
}

// FindByID loads one subject.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByEvent returns every subject of an event ordered by name.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Subject, error) {
	var rows []models.Subject
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByIDs loads subject rows for the given ids.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Subject, error) {
	if len(ids) == 0 {
		return []models.Subject{}, nil
	}
	var rows []models.Subject
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Assign links a photo to a subject. Re-tagging the same pair is a no-op.
func (r *Repository) Assign(ctx context.Context, link *models.PhotoSubject) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "photo_id"}, {Name: "subject_id"}},
			DoNothing: true,
		}).
		Create(link).Error
}

// AssignBatch inserts the provided links in one statement.
func (r *Repository) AssignBatch(ctx context.Context, links []models.PhotoSubject) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

// Unassign removes the photo↔subject link if present.
func (r *Repository) Unassign(ctx context.Context, photoID, subjectID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("photo_id = ? AND subject_id = ?", photoID, subjectID).
		Delete(&models.PhotoSubject{}).Error
}

// PhotoIDsBySubject returns photo ids tagged with the subject, sorted for
// deterministic scope resolution.
func (r *Repository) PhotoIDsBySubject(ctx context.Context, subjectID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.PhotoSubject{}).
		Where("subject_id = ?", subjectID).
		Order("photo_id ASC").
		Pluck("photo_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistingPairs returns the photo↔subject pairs that already exist among the
// candidates, keyed by "photoID:subjectID".
func (r *Repository) ExistingPairs(ctx context.Context, links []models.PhotoSubject) (map[string]bool, error) {
	existing := map[string]bool{}
	if len(links) == 0 {
		return existing, nil
	}
	photoIDs := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		photoIDs = append(photoIDs, link.PhotoID)
	}
	var rows []models.PhotoSubject
	if err := r.db.WithContext(ctx).
		Where("photo_id IN ?", photoIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		existing[pairKey(row.PhotoID, row.SubjectID)] = true
	}
	return existing, nil
}

func pairKey(photoID, subjectID uuid.UUID) string {
	return photoID.String() + ":" + subjectID.String()
}
