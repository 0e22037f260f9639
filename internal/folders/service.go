package folders

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

const maxFolderDepth = 10

type foldersRepository interface {
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Folder, error)
	DescendantIDs(ctx context.Context, folderID uuid.UUID) ([]uuid.UUID, error)
}

type eventLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Service exposes folder tree management for an event.
type Service interface {
	Create(ctx context.Context, input CreateFolderInput) (*models.Folder, error)
	Tree(ctx context.Context, eventID uuid.UUID) ([]Node, error)
}

// CreateFolderInput holds the validated payload to create a folder.
type CreateFolderInput struct {
	EventID  uuid.UUID
	ParentID *uuid.UUID
	Name     string
}

// Node is one folder plus its nested children.
type Node struct {
	Folder   models.Folder `json:"folder"`
	Children []*Node       `json:"children"`
}

type service struct {
	repo   foldersRepository
	events eventLoader
	logg   *logger.Logger
}

// NewService constructs the folder service.
func NewService(repo foldersRepository, events eventLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("folders repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("event loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, events: events, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateFolderInput) (*models.Folder, error) {
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder name is required")
	}

	if _, err := s.events.FindByID(ctx, input.EventID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	depth := 0
	if input.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *input.ParentID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent folder not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading parent folder")
		}
		if parent.EventID != input.EventID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent folder belongs to a different event")
		}
		depth = parent.Depth + 1
		if depth > maxFolderDepth {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder tree too deep")
		}
	}

	folder := &models.Folder{
		EventID:  input.EventID,
		ParentID: input.ParentID,
		Name:     name,
		Depth:    depth,
	}
	created, err := s.repo.Create(ctx, folder)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating folder")
	}
	return created, nil
}

func (s *service) Tree(ctx context.Context, eventID uuid.UUID) ([]Node, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}

	rows, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing folders")
	}

	nodes := make(map[uuid.UUID]*Node, len(rows))
	for i := range rows {
		nodes[rows[i].ID] = &Node{Folder: rows[i], Children: []*Node{}}
	}

	roots := []Node{}
	// Rows are ordered by depth, so parents always precede children.
	for i := range rows {
		node := nodes[rows[i].ID]
		if rows[i].ParentID == nil {
			continue
		}
		if parent, ok := nodes[*rows[i].ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	for i := range rows {
		if rows[i].ParentID == nil {
			roots = append(roots, *nodes[rows[i].ID])
		}
	}
	return roots, nil
}
