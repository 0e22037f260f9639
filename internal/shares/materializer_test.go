package shares

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMaterializerRebuildReplacesStaleRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token := seedToken(t, h.gdb, nil)
	stale := []uuid.UUID{uuid.New(), uuid.New()}
	require.NoError(t, h.materializer.Rebuild(ctx, token.ID, stale))

	fresh := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	require.NoError(t, h.materializer.Rebuild(ctx, token.ID, fresh))

	got, err := h.repo.ContentPhotoIDs(ctx, token.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, fresh, got)
	for _, staleID := range stale {
		require.NotContains(t, got, staleID)
	}
}

func TestMaterializerRebuildToEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token := seedToken(t, h.gdb, nil)
	require.NoError(t, h.materializer.Rebuild(ctx, token.ID, []uuid.UUID{uuid.New()}))
	require.NoError(t, h.materializer.Rebuild(ctx, token.ID, nil))

	got, err := h.repo.ContentPhotoIDs(ctx, token.ID)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMaterializerRebuildAbortsAtomically(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token := seedToken(t, h.gdb, nil)
	previous := []uuid.UUID{uuid.New(), uuid.New()}
	require.NoError(t, h.materializer.Rebuild(ctx, token.ID, previous))

	// A duplicate photo id violates the unique pair constraint mid-insert;
	// the delete must roll back with it, keeping the previous cache intact.
	dup := uuid.New()
	err := h.materializer.Rebuild(ctx, token.ID, []uuid.UUID{dup, dup})
	require.Error(t, err)

	got, err := h.repo.ContentPhotoIDs(ctx, token.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, previous, got)
}
