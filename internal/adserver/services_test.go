package adserver

import (
	"context"
	"testing"

	"github.com/radiusdt/adserver/internal/models"
	"github.com/radiusdt/adserver/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestUpsertProviderAssignsIDAndTimestamps(t *testing.T) {
	require := require.New(t)
	svc := NewProviderService(storage.NewInMemoryProviderRepo())

	p := &models.Provider{Name: "AdSense Main", Network: "adsense", IsActive: true}
	require.NoError(svc.UpsertProvider(context.Background(), p))
	require.NotEmpty(p.ID)
	require.False(p.CreatedAt.IsZero())
	require.False(p.UpdatedAt.IsZero())

	got, err := svc.GetProvider(context.Background(), p.ID)
	require.NoError(err)
	require.Equal("AdSense Main", got.Name)
}

func TestUpsertProviderNameConflict(t *testing.T) {
	require := require.New(t)
	svc := NewProviderService(storage.NewInMemoryProviderRepo())

	a := &models.Provider{Name: "Media.net", Network: "medianet"}
	require.NoError(svc.UpsertProvider(context.Background(), a))

	b := &models.Provider{Name: "media.NET", Network: "medianet"}
	err := svc.UpsertProvider(context.Background(), b)
	require.Error(err)
	require.True(IsConflict(err))

	// Re-saving the same row under its own name is not a conflict.
	a.Network = "direct"
	require.NoError(svc.UpsertProvider(context.Background(), a))
}

func TestUpsertProviderValidation(t *testing.T) {
	require := require.New(t)
	svc := NewProviderService(storage.NewInMemoryProviderRepo())

	err := svc.UpsertProvider(context.Background(), &models.Provider{Network: "direct"})
	require.Error(err)
	require.True(IsValidation(err))
}

func TestGetProviderNotFound(t *testing.T) {
	require := require.New(t)
	svc := NewProviderService(storage.NewInMemoryProviderRepo())

	_, err := svc.GetProvider(context.Background(), "missing")
	require.True(IsNotFound(err))
}

func TestDeactivateProvider(t *testing.T) {
	require := require.New(t)
	repo := storage.NewInMemoryProviderRepo()
	svc := NewProviderService(repo)

	p := &models.Provider{Name: "Direct", Network: "direct", IsActive: true}
	require.NoError(svc.UpsertProvider(context.Background(), p))
	require.NoError(svc.DeactivateProvider(context.Background(), p.ID))

	got, err := svc.GetProvider(context.Background(), p.ID)
	require.NoError(err)
	require.False(got.IsActive)

	require.True(IsNotFound(svc.DeactivateProvider(context.Background(), "missing")))
}

func TestUpsertCampaignRequiresExistingProvider(t *testing.T) {
	require := require.New(t)
	providers := storage.NewInMemoryProviderRepo()
	svc := NewCampaignService(storage.NewInMemoryCampaignRepo(), providers)

	c := &models.Campaign{
		Name: "Summer", ProviderID: "ghost",
		AdType: models.AdTypeBanner,
	}
	err := svc.UpsertCampaign(context.Background(), c)
	require.Error(err)
	require.True(IsValidation(err))

	_ = providers.Upsert(context.Background(), &models.Provider{ID: "p1", Name: "x", Network: "direct"})
	c.ProviderID = "p1"
	require.NoError(svc.UpsertCampaign(context.Background(), c))
	require.NotEmpty(c.ID)
}

func TestUpsertCampaignRejectsBadAdType(t *testing.T) {
	require := require.New(t)
	svc := NewCampaignService(storage.NewInMemoryCampaignRepo(), storage.NewInMemoryProviderRepo())

	err := svc.UpsertCampaign(context.Background(), &models.Campaign{
		Name: "x", ProviderID: "p1", AdType: "interstitial",
	})
	require.Error(err)
	require.True(IsValidation(err))
}

func TestUpsertSlotPlacementConflict(t *testing.T) {
	require := require.New(t)
	svc := NewSlotService(storage.NewInMemorySlotRepo())

	a := &models.Slot{Position: "header", Page: "converter", IsActive: true}
	require.NoError(svc.UpsertSlot(context.Background(), a))

	b := &models.Slot{Position: "header", Page: "converter"}
	err := svc.UpsertSlot(context.Background(), b)
	require.Error(err)
	require.True(IsConflict(err))

	// Same page, different position is fine.
	c := &models.Slot{Position: "footer", Page: "converter"}
	require.NoError(svc.UpsertSlot(context.Background(), c))
}

func TestUpsertAssignmentRequiresBothEnds(t *testing.T) {
	require := require.New(t)
	slots := storage.NewInMemorySlotRepo()
	campaigns := storage.NewInMemoryCampaignRepo()
	svc := NewAssignmentService(storage.NewInMemoryAssignmentRepo(), slots, campaigns)

	a := &models.SlotAssignment{SlotID: "s1", CampaignID: "c1", Priority: 1, IsActive: true}
	err := svc.UpsertAssignment(context.Background(), a)
	require.True(IsValidation(err))

	_ = slots.Upsert(context.Background(), &models.Slot{ID: "s1", Position: "p", Page: "g"})
	err = svc.UpsertAssignment(context.Background(), a)
	require.True(IsValidation(err))

	_ = campaigns.Upsert(context.Background(), &models.Campaign{ID: "c1", Name: "c", ProviderID: "p1", AdType: models.AdTypeBanner})
	require.NoError(svc.UpsertAssignment(context.Background(), a))
	require.NotEmpty(a.ID)
	require.False(a.AssignedAt.IsZero())
}

func TestDeleteAssignment(t *testing.T) {
	require := require.New(t)
	slots := storage.NewInMemorySlotRepo()
	campaigns := storage.NewInMemoryCampaignRepo()
	svc := NewAssignmentService(storage.NewInMemoryAssignmentRepo(), slots, campaigns)

	_ = slots.Upsert(context.Background(), &models.Slot{ID: "s1", Position: "p", Page: "g"})
	_ = campaigns.Upsert(context.Background(), &models.Campaign{ID: "c1", Name: "c", ProviderID: "p1", AdType: models.AdTypeBanner})

	a := &models.SlotAssignment{SlotID: "s1", CampaignID: "c1", IsActive: true}
	require.NoError(svc.UpsertAssignment(context.Background(), a))

	require.NoError(svc.DeleteAssignment(context.Background(), a.ID))
	_, err := svc.GetAssignment(context.Background(), a.ID)
	require.True(IsNotFound(err))

	require.True(IsNotFound(svc.DeleteAssignment(context.Background(), a.ID)))
}
