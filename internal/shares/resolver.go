package shares

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/internal/photos"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db"
	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

type photoSource interface {
	IDsByEvent(ctx context.Context, eventID uuid.UUID, filters photos.Filters) ([]uuid.UUID, error)
	IDsByFolders(ctx context.Context, folderIDs []uuid.UUID, filters photos.Filters) ([]uuid.UUID, error)
	ExistingIDsInEvent(ctx context.Context, eventID uuid.UUID, candidates []uuid.UUID, filters photos.Filters) ([]uuid.UUID, error)
}

type folderSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error)
	DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// Resolver turns a scope config into the concrete photo-id set it denotes.
// Resolution is a pure function of stored state: the same config against the
// same data always yields the same deduplicated, id-ordered set.
type Resolver struct {
	photos  photoSource
	folders folderSource
}

// NewResolver constructs a resolver over the photo and folder stores.
func NewResolver(photoStore photoSource, folderStore folderSource) (*Resolver, error) {
	if photoStore == nil {
		return nil, fmt.Errorf("photo store required")
	}
	if folderStore == nil {
		return nil, fmt.Errorf("folder store required")
	}
	return &Resolver{photos: photoStore, folders: folderStore}, nil
}

// Resolve computes the photo ids granted by the config within the event.
func (r *Resolver) Resolve(ctx context.Context, eventID uuid.UUID, cfg ScopeConfig) ([]uuid.UUID, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}

	filters := photos.Filters{
		ApprovedOnly: cfg.Filters.ApprovedOnly,
		Status:       cfg.Filters.Status,
	}

	switch cfg.Scope {
	case enums.ShareScopePhotos:
		return r.resolvePhotos(ctx, eventID, cfg, filters)
	case enums.ShareScopeFolder:
		return r.resolveFolder(ctx, eventID, cfg, filters)
	case enums.ShareScopeEvent:
		return r.resolveEvent(ctx, eventID, cfg, filters)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown share scope")
	}
}

func (r *Resolver) resolvePhotos(ctx context.Context, eventID uuid.UUID, cfg ScopeConfig, filters photos.Filters) ([]uuid.UUID, error) {
	if len(cfg.PhotoIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photos scope requires a photo id list")
	}
	ids, err := r.photos.ExistingIDsInEvent(ctx, eventID, dedupe(cfg.PhotoIDs), filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving photo list")
	}
	return ids, nil
}

func (r *Resolver) resolveFolder(ctx context.Context, eventID uuid.UUID, cfg ScopeConfig, filters photos.Filters) ([]uuid.UUID, error) {
	if cfg.AnchorID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeScopeNotFound, "folder scope requires an anchor folder id")
	}
	folder, err := r.folders.FindByID(ctx, *cfg.AnchorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeScopeNotFound, "anchor folder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading anchor folder")
	}
	if folder.EventID != eventID {
		return nil, pkgerrors.New(pkgerrors.CodeScopeNotFound, "anchor folder belongs to a different event")
	}

	folderIDs := []uuid.UUID{folder.ID}
	if cfg.IncludeDescendants {
		folderIDs, err = r.folders.DescendantIDs(ctx, folder.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "walking folder subtree")
		}
	}

	ids, err := r.photos.IDsByFolders(ctx, folderIDs, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collecting folder photos")
	}
	return dedupe(ids), nil
}

func (r *Resolver) resolveEvent(ctx context.Context, eventID uuid.UUID, cfg ScopeConfig, filters photos.Filters) ([]uuid.UUID, error) {
	if cfg.AnchorID != nil && *cfg.AnchorID != eventID {
		return nil, pkgerrors.New(pkgerrors.CodeScopeNotFound, "anchor does not match the event")
	}
	ids, err := r.photos.IDsByEvent(ctx, eventID, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collecting event photos")
	}
	return ids, nil
}

// dedupe drops duplicates while keeping the incoming order intact.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
