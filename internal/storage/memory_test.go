package storage

import (
	"context"
	"testing"
	"time"

	"github.com/radiusdt/adserver/internal/models"
	"github.com/stretchr/testify/require"
)

func TestInMemoryViewStoreDayWindow(t *testing.T) {
	require := require.New(t)
	store := NewInMemoryViewStore()
	ctx := context.Background()

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	save := func(id string, at time.Time, page string) {
		require.NoError(store.SaveView(ctx, &models.View{
			ID: id, SlotID: "s1", SessionID: "x", Page: page,
			ViewType: models.ViewImpression, Timestamp: at,
		}))
	}

	save("v1", day, "tools")
	save("v2", day.Add(23*time.Hour+59*time.Minute), "tools")
	save("v3", day.Add(24*time.Hour), "tools") // next day
	save("v4", day.Add(-time.Second), "tools") // previous day
	save("v5", day.Add(time.Hour), "converter")

	got, err := store.ListByDate(ctx, day.Add(13*time.Hour), "")
	require.NoError(err)
	require.Len(got, 3)

	got, err = store.ListByDate(ctx, day, "tools")
	require.NoError(err)
	require.Len(got, 2)
}

func TestInMemoryUpsertCopies(t *testing.T) {
	require := require.New(t)
	repo := NewInMemoryCampaignRepo()
	ctx := context.Background()

	c := &models.Campaign{ID: "c1", Name: "original", ProviderID: "p1", AdType: models.AdTypeBanner}
	require.NoError(repo.Upsert(ctx, c))

	// Mutating the caller's struct must not change the stored row.
	c.Name = "mutated"
	got, err := repo.GetByID(ctx, "c1")
	require.NoError(err)
	require.Equal("original", got.Name)
}

func TestInMemoryReadsReturnCopies(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	providers := NewInMemoryProviderRepo()
	require.NoError(providers.Upsert(ctx, &models.Provider{ID: "p1", Name: "P", Network: "direct", IsActive: true}))

	// Mutating what a read hands out must not touch the stored row.
	got, err := providers.GetByID(ctx, "p1")
	require.NoError(err)
	got.IsActive = false
	got.Name = "mutated"

	again, err := providers.GetByID(ctx, "p1")
	require.NoError(err)
	require.True(again.IsActive)
	require.Equal("P", again.Name)

	byName, err := providers.GetByName(ctx, "P")
	require.NoError(err)
	require.NotSame(again, byName)

	list, err := providers.ListAll(ctx)
	require.NoError(err)
	require.Len(list, 1)
	list[0].Network = "mutated"
	again, err = providers.GetByID(ctx, "p1")
	require.NoError(err)
	require.Equal("direct", again.Network)

	assignments := NewInMemoryAssignmentRepo()
	require.NoError(assignments.Upsert(ctx, &models.SlotAssignment{ID: "a1", SlotID: "s1", CampaignID: "c1", Priority: 5, IsActive: true}))
	bySlot, err := assignments.ListBySlot(ctx, "s1")
	require.NoError(err)
	require.Len(bySlot, 1)
	bySlot[0].Priority = 99
	a, err := assignments.GetByID(ctx, "a1")
	require.NoError(err)
	require.Equal(int32(5), a.Priority)
}

func TestInMemoryAssignmentDelete(t *testing.T) {
	require := require.New(t)
	repo := NewInMemoryAssignmentRepo()
	ctx := context.Background()

	a := &models.SlotAssignment{ID: "a1", SlotID: "s1", CampaignID: "c1", IsActive: true}
	require.NoError(repo.Upsert(ctx, a))
	require.NoError(repo.Delete(ctx, "a1"))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(err)
	require.Nil(got)

	// Deleting a missing row is a no-op.
	require.NoError(repo.Delete(ctx, "a1"))
}

func TestInMemorySlotPlacementLookup(t *testing.T) {
	require := require.New(t)
	repo := NewInMemorySlotRepo()
	ctx := context.Background()

	require.NoError(repo.Upsert(ctx, &models.Slot{ID: "s1", Position: "sidebar", Page: "tools"}))

	got, err := repo.GetByPlacement(ctx, "sidebar", "tools")
	require.NoError(err)
	require.NotNil(got)
	require.Equal("s1", got.ID)

	got, err = repo.GetByPlacement(ctx, "sidebar", "home")
	require.NoError(err)
	require.Nil(got)
}
