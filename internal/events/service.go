package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/pagination"
)

type eventsRepository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) (*models.Event, error)
}

// Service exposes event management for the admin API.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateEventInput) (*models.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*models.Event, error)
}

// CreateEventInput holds the validated payload to create an event.
type CreateEventInput struct {
	Name      string
	School    *string
	ShootDate *time.Time
}

// UpdateEventInput holds optional mutation values for an event.
type UpdateEventInput struct {
	Name      *string
	School    *string
	ShootDate *time.Time
	IsActive  *bool
}

// ListResult carries one page of events plus the follow-up cursor.
type ListResult struct {
	Events     []models.Event
	NextCursor string
}

type service struct {
	repo eventsRepository
	logg *logger.Logger
}

// NewService constructs the event service.
func NewService(repo eventsRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateEventInput) (*models.Event, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name is required")
	}

	event := &models.Event{
		Name:      name,
		School:    input.School,
		ShootDate: input.ShootDate,
		IsActive:  true,
		CreatedBy: userID,
	}
	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating event")
	}

	ctx = s.logg.WithEventID(ctx, created.ID.String())
	s.logg.Info(ctx, "event created")
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	return event, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing events")
	}

	result := &ListResult{Events: rows}
	if len(rows) > limit {
		result.Events = rows[:limit]
		last := result.Events[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name cannot be empty")
		}
		event.Name = name
	}
	if input.School != nil {
		event.School = input.School
	}
	if input.ShootDate != nil {
		event.ShootDate = input.ShootDate
	}
	if input.IsActive != nil {
		event.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating event")
	}
	return updated, nil
}
