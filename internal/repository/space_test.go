//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/testutil"
)

func newStoredSpace(ctx context.Context, t *testing.T, repo *SpaceRepository, ownerID, name string) *domain.Space {
	now := time.Now().UTC().Truncate(time.Microsecond)
	space := &domain.Space{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: "integration test space",
		Rules:       domain.SpaceRules{AllowHealthData: true, CustomInstructions: "be brief"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(ctx, space))
	return space
}

func TestSpaceRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSpaceRepository(pool)
	space := newStoredSpace(ctx, t, repo, "owner-1", "personal")

	retrieved, err := repo.GetByID(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, space.ID, retrieved.ID)
	assert.Equal(t, space.OwnerID, retrieved.OwnerID)
	assert.Equal(t, space.Name, retrieved.Name)
	assert.True(t, retrieved.Rules.AllowHealthData)
	assert.Equal(t, "be brief", retrieved.Rules.CustomInstructions)
}

func TestSpaceRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSpaceRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSpaceNotFound)
}

func TestSpaceRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSpaceRepository(pool)
	newStoredSpace(ctx, t, repo, "owner-1", "personal")
	newStoredSpace(ctx, t, repo, "owner-1", "work")
	newStoredSpace(ctx, t, repo, "owner-2", "personal")

	spaces, err := repo.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, spaces, 2)
	for _, s := range spaces {
		assert.Equal(t, "owner-1", s.OwnerID)
	}
}

func TestSpaceRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSpaceRepository(pool)
	space := newStoredSpace(ctx, t, repo, "owner-1", "personal")

	space.Name = "renamed"
	space.Rules.AllowHealthData = false
	require.NoError(t, repo.Update(ctx, space))

	retrieved, err := repo.GetByID(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", retrieved.Name)
	assert.False(t, retrieved.Rules.AllowHealthData)
}

func TestSpaceRepository_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSpaceRepository(pool)

	now := time.Now().UTC()
	ghost := &domain.Space{
		ID:        uuid.NewString(),
		OwnerID:   "owner-1",
		Name:      "ghost",
		CreatedAt: now,
		UpdatedAt: now,
	}
	assert.ErrorIs(t, repo.Update(ctx, ghost), domain.ErrSpaceNotFound)
}

func TestSpaceRepository_Delete_CascadesToFacts(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	spaceRepo := NewSpaceRepository(pool)
	factRepo := NewFactRepository(pool)

	space := newStoredSpace(ctx, t, spaceRepo, "owner-1", "personal")
	fact := newStoredFact(ctx, t, factRepo, space.ID, "likes espresso", time.Now().UTC())

	require.NoError(t, spaceRepo.Delete(ctx, space.ID))

	_, err := spaceRepo.GetByID(ctx, space.ID)
	assert.ErrorIs(t, err, domain.ErrSpaceNotFound)

	_, err = factRepo.GetByID(ctx, fact.ID)
	assert.ErrorIs(t, err, domain.ErrFactNotFound)
}
