package subjects

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

const maxBatchAssignments = 500

type subjectsRepository interface {
	Create(ctx context.Context, subject *models.Subject) (*models.Subject, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subject, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Subject, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Subject, error)
	Assign(ctx context.Context, link *models.PhotoSubject) error
	AssignBatch(ctx context.Context, links []models.PhotoSubject) error
	Unassign(ctx context.Context, photoID, subjectID uuid.UUID) error
	ExistingPairs(ctx context.Context, links []models.PhotoSubject) (map[string]bool, error)
}

type eventLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type photoLoader interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
}

// Service exposes subject management and photo tagging.
type Service interface {
	Create(ctx context.Context, input CreateSubjectInput) (*models.Subject, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Subject, error)
	Assign(ctx context.Context, taggedBy uuid.UUID, photoID, subjectID uuid.UUID) error
	Unassign(ctx context.Context, photoID, subjectID uuid.UUID) error
	AssignBatch(ctx context.Context, taggedBy uuid.UUID, input BatchAssignInput) (*BatchAssignResult, error)
}

// CreateSubjectInput models a new tagged student or family.
type CreateSubjectInput struct {
	EventID uuid.UUID
	Name    string
	Grade   *string
}

// Assignment is one photo↔subject pair in a batch request.
type Assignment struct {
	PhotoID   uuid.UUID `json:"photo_id"`
	SubjectID uuid.UUID `json:"subject_id"`
}

// BatchAssignInput tags many pairs at once within one event.
type BatchAssignInput struct {
	EventID     uuid.UUID
	Assignments []Assignment
}

// BatchAssignResult reports how many links the batch created.
type BatchAssignResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type service struct {
	repo   subjectsRepository
	events eventLoader
	photos photoLoader
	logg   *logger.Logger
}

// NewService constructs the subjects service.
func NewService(repo subjectsRepository, events eventLoader, photos photoLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subjects repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("event loader required")
	}
	if photos == nil {
		return nil, fmt.Errorf("photo loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, events: events, photos: photos, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateSubjectInput) (*models.Subject, error) {
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject name is required")
	}
	if _, err := s.events.FindByID(ctx, input.EventID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	subject := &models.Subject{
		ID:      uuid.New(),
		EventID: input.EventID,
		Name:    name,
		Grade:   input.Grade,
	}
	created, err := s.repo.Create(ctx, subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating subject")
	}
	return created, nil
}

func (s *service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Subject, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	rows, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing subjects")
	}
	return rows, nil
}

func (s *service) Assign(ctx context.Context, taggedBy uuid.UUID, photoID, subjectID uuid.UUID) error {
	if taggedBy == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if photoID == uuid.Nil || subjectID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "photo id and subject id are required")
	}

	subject, err := s.repo.FindByID(ctx, subjectID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subject not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subject")
	}
	photo, err := s.photos.FindByID(ctx, photoID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photo")
	}
	if photo.EventID != subject.EventID {
		return pkgerrors.New(pkgerrors.CodeValidation, "photo and subject belong to different events")
	}

	link := &models.PhotoSubject{
		ID:        uuid.New(),
		PhotoID:   photoID,
		SubjectID: subjectID,
		TaggedBy:  taggedBy,
	}
	if err := s.repo.Assign(ctx, link); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assigning tag")
	}
	return nil
}

func (s *service) Unassign(ctx context.Context, photoID, subjectID uuid.UUID) error {
	if photoID == uuid.Nil || subjectID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "photo id and subject id are required")
	}
	if err := s.repo.Unassign(ctx, photoID, subjectID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unassigning tag")
	}
	return nil
}

// AssignBatch validates every pair before writing any row: each photo and each
// subject must exist and belong to the batch's event. One bad pair rejects the
// whole batch.
func (s *service) AssignBatch(ctx context.Context, taggedBy uuid.UUID, input BatchAssignInput) (*BatchAssignResult, error) {
	if taggedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if len(input.Assignments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignments are required")
	}
	if len(input.Assignments) > maxBatchAssignments {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("batch exceeds %d assignments", maxBatchAssignments))
	}

	photoIDs := make([]uuid.UUID, 0, len(input.Assignments))
	subjectIDs := make([]uuid.UUID, 0, len(input.Assignments))
	seenPhotos := map[uuid.UUID]bool{}
	seenSubjects := map[uuid.UUID]bool{}
	for _, pair := range input.Assignments {
		if pair.PhotoID == uuid.Nil || pair.SubjectID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every assignment needs a photo id and a subject id")
		}
		if !seenPhotos[pair.PhotoID] {
			seenPhotos[pair.PhotoID] = true
			photoIDs = append(photoIDs, pair.PhotoID)
		}
		if !seenSubjects[pair.SubjectID] {
			seenSubjects[pair.SubjectID] = true
			subjectIDs = append(subjectIDs, pair.SubjectID)
		}
	}

	photos, err := s.photos.ListByIDs(ctx, photoIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photos")
	}
	photosByID := map[uuid.UUID]models.Photo{}
	for _, photo := range photos {
		photosByID[photo.ID] = photo
	}
	subjects, err := s.repo.ListByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subjects")
	}
	subjectsByID := map[uuid.UUID]models.Subject{}
	for _, subject := range subjects {
		subjectsByID[subject.ID] = subject
	}

	for _, pair := range input.Assignments {
		photo, ok := photosByID[pair.PhotoID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("photo %s not found", pair.PhotoID))
		}
		subject, ok := subjectsByID[pair.SubjectID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("subject %s not found", pair.SubjectID))
		}
		if photo.EventID != input.EventID || subject.EventID != input.EventID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("pair %s/%s is outside the event", pair.PhotoID, pair.SubjectID))
		}
	}

	existing, err := s.repo.ExistingPairs(ctx, pairsToLinks(input.Assignments, taggedBy))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking existing tags")
	}

	links := make([]models.PhotoSubject, 0, len(input.Assignments))
	seenPairs := map[string]bool{}
	skipped := 0
	for _, pair := range input.Assignments {
		key := pairKey(pair.PhotoID, pair.SubjectID)
		if existing[key] || seenPairs[key] {
			skipped++
			continue
		}
		seenPairs[key] = true
		links = append(links, models.PhotoSubject{
			ID:        uuid.New(),
			PhotoID:   pair.PhotoID,
			SubjectID: pair.SubjectID,
			TaggedBy:  taggedBy,
		})
	}

	// Single multi-row insert: either every new link lands or none do.
	if len(links) > 0 {
		if err := s.repo.AssignBatch(ctx, links); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing tags")
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id": input.EventID.String(),
		"created":  len(links),
		"skipped":  skipped,
	}), "batch tagging applied")

	return &BatchAssignResult{Created: len(links), Skipped: skipped}, nil
}

func pairsToLinks(pairs []Assignment, taggedBy uuid.UUID) []models.PhotoSubject {
	links := make([]models.PhotoSubject, 0, len(pairs))
	for _, pair := range pairs {
		links = append(links, models.PhotoSubject{PhotoID: pair.PhotoID, SubjectID: pair.SubjectID, TaggedBy: taggedBy})
	}
	return links
}
