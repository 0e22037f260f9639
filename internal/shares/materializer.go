package shares

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastellanos/fotoescolar-backend/pkg/db/models"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Materializer keeps the contents cache of a token equal to its resolved
// scope. Rows are rebuilt wholesale, never patched: a half-written cache is
// indistinguishable from a legitimately small share downstream.
type Materializer struct {
	repo *Repository
	tx   txRunner
}

// NewMaterializer constructs a materializer over the shares repository.
func NewMaterializer(repo *Repository, tx txRunner) (*Materializer, error) {
	if repo == nil {
		return nil, fmt.Errorf("shares repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Materializer{repo: repo, tx: tx}, nil
}

// Rebuild replaces the token's materialized contents with photoIDs inside one
// transaction. Failure aborts atomically, leaving the previous cache intact.
// Re-enterable: a future edit-share path reuses it unchanged.
func (m *Materializer) Rebuild(ctx context.Context, tokenID uuid.UUID, photoIDs []uuid.UUID) error {
	if tokenID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "share token id is required")
	}
	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return m.RebuildTx(ctx, tx, tokenID, photoIDs)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rebuilding share contents")
	}
	return nil
}

// RebuildTx performs the delete-then-insert inside the caller's transaction,
// so share creation can commit the token row and its contents as one unit.
func (m *Materializer) RebuildTx(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID, photoIDs []uuid.UUID) error {
	repo := m.repo.WithTx(tx)
	if err := repo.DeleteContents(ctx, tokenID); err != nil {
		return fmt.Errorf("clearing share contents: %w", err)
	}
	rows := make([]models.ShareTokenContent, 0, len(photoIDs))
	for _, photoID := range photoIDs {
		rows = append(rows, models.ShareTokenContent{
			ID:           uuid.New(),
			ShareTokenID: tokenID,
			PhotoID:      photoID,
		})
	}
	if err := repo.InsertContents(ctx, rows); err != nil {
		return fmt.Errorf("inserting share contents: %w", err)
	}
	return nil
}
