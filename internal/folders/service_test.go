package folders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

type stubFoldersRepo struct {
	byID    map[uuid.UUID]*models.Folder
	byEvent []models.Folder
	created *models.Folder
}

func (s *stubFoldersRepo) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}
	s.created = folder
	return folder, nil
}

func (s *stubFoldersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	if folder, ok := s.byID[id]; ok {
		return folder, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubFoldersRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Folder, error) {
	return s.byEvent, nil
}

func (s *stubFoldersRepo) DescendantIDs(ctx context.Context, folderID uuid.UUID) ([]uuid.UUID, error) {
	return []uuid.UUID{folderID}, nil
}

type stubEventLoader struct {
	known map[uuid.UUID]bool
}

func (s stubEventLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if s.known[id] {
		return &models.Event{ID: id}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "folders-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestCreateRejectsCrossEventParent(t *testing.T) {
	eventID := uuid.New()
	otherEvent := uuid.New()
	parent := &models.Folder{ID: uuid.New(), EventID: otherEvent, Depth: 0}
	repo := &stubFoldersRepo{byID: map[uuid.UUID]*models.Folder{parent.ID: parent}}
	svc, err := NewService(repo, stubEventLoader{known: map[uuid.UUID]bool{eventID: true}}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateFolderInput{
		EventID:  eventID,
		ParentID: &parent.ID,
		Name:     "Sala A",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateComputesDepth(t *testing.T) {
	eventID := uuid.New()
	parent := &models.Folder{ID: uuid.New(), EventID: eventID, Depth: 2}
	repo := &stubFoldersRepo{byID: map[uuid.UUID]*models.Folder{parent.ID: parent}}
	svc, err := NewService(repo, stubEventLoader{known: map[uuid.UUID]bool{eventID: true}}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	folder, err := svc.Create(context.Background(), CreateFolderInput{
		EventID:  eventID,
		ParentID: &parent.ID,
		Name:     "Retratos",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if folder.Depth != 3 {
		t.Fatalf("expected depth 3, got %d", folder.Depth)
	}
}

func TestCreateRejectsUnknownEvent(t *testing.T) {
	svc, err := NewService(&stubFoldersRepo{}, stubEventLoader{known: map[uuid.UUID]bool{}}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateFolderInput{EventID: uuid.New(), Name: "x"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTreeAssemblesHierarchy(t *testing.T) {
	eventID := uuid.New()
	rootID := uuid.New()
	childID := uuid.New()
	grandchildID := uuid.New()
	rows := []models.Folder{
		{ID: rootID, EventID: eventID, Name: "root", Depth: 0},
		{ID: childID, EventID: eventID, ParentID: &rootID, Name: "child", Depth: 1},
		{ID: grandchildID, EventID: eventID, ParentID: &childID, Name: "grandchild", Depth: 2},
	}
	svc, err := NewService(&stubFoldersRepo{byEvent: rows}, stubEventLoader{known: map[uuid.UUID]bool{eventID: true}}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	tree, err := svc.Tree(context.Background(), eventID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 1 {
		t.Fatalf("expected 1 root, got %d", len(tree))
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].Folder.ID != childID {
		t.Fatalf("child not wired under root")
	}
	if len(tree[0].Children[0].Children) != 1 || tree[0].Children[0].Children[0].Folder.ID != grandchildID {
		t.Fatalf("grandchild not wired under child")
	}
}
