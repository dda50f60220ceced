package adserver

import (
	"context"
	"testing"
	"time"

	"github.com/radiusdt/adserver/internal/models"
	"github.com/radiusdt/adserver/internal/storage"
	"github.com/stretchr/testify/require"
)

type resolverFixture struct {
	providers   *storage.InMemoryProviderRepo
	campaigns   *storage.InMemoryCampaignRepo
	slots       *storage.InMemorySlotRepo
	assignments *storage.InMemoryAssignmentRepo
	resolver    *ResolverService
}

func newResolverFixture() *resolverFixture {
	f := &resolverFixture{
		providers:   storage.NewInMemoryProviderRepo(),
		campaigns:   storage.NewInMemoryCampaignRepo(),
		slots:       storage.NewInMemorySlotRepo(),
		assignments: storage.NewInMemoryAssignmentRepo(),
	}
	f.resolver = NewResolverService(f.slots, f.assignments, f.campaigns, f.providers)
	return f
}

func (f *resolverFixture) addProvider(id string, active bool) {
	_ = f.providers.Upsert(context.Background(), &models.Provider{
		ID: id, Name: "provider-" + id, Network: "direct", IsActive: active,
	})
}

func (f *resolverFixture) addCampaign(id, providerID string, active bool) {
	_ = f.campaigns.Upsert(context.Background(), &models.Campaign{
		ID: id, ProviderID: providerID, Name: "campaign-" + id,
		AdType: models.AdTypeBanner, AdCode: "<div>ad</div>", IsActive: active,
	})
}

func (f *resolverFixture) addSlot(id string, active bool) {
	_ = f.slots.Upsert(context.Background(), &models.Slot{
		ID: id, Position: "sidebar", Page: "tools", IsActive: active,
	})
}

func (f *resolverFixture) addAssignment(id, slotID, campaignID string, priority int32, assignedAt time.Time) {
	_ = f.assignments.Upsert(context.Background(), &models.SlotAssignment{
		ID: id, SlotID: slotID, CampaignID: campaignID,
		Priority: priority, IsActive: true, AssignedAt: assignedAt,
	})
}

func TestResolveMissingSlot(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()

	res, err := f.resolver.Resolve(context.Background(), "nope", time.Now().UTC())
	require.NoError(err)
	require.Nil(res.Slot)
	require.Nil(res.Campaign)
}

func TestResolveInactiveSlot(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()
	f.addSlot("s1", false)

	res, err := f.resolver.Resolve(context.Background(), "s1", time.Now().UTC())
	require.NoError(err)
	require.Nil(res.Slot)
	require.Nil(res.Campaign)
}

func TestResolveNoAssignments(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()
	f.addSlot("s1", true)

	res, err := f.resolver.Resolve(context.Background(), "s1", time.Now().UTC())
	require.NoError(err)
	require.NotNil(res.Slot)
	require.Equal("s1", res.Slot.ID)
	require.Nil(res.Campaign)
}

func TestResolveHighestPriorityWins(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()
	now := time.Now().UTC()

	f.addProvider("p1", true)
	f.addCampaign("c-low", "p1", true)
	f.addCampaign("c-mid", "p1", true)
	f.addCampaign("c-high", "p1", true)
	f.addSlot("s1", true)

	// Insertion order must not matter.
	f.addAssignment("a2", "s1", "c-mid", 5, now)
	f.addAssignment("a3", "s1", "c-high", 10, now)
	f.addAssignment("a1", "s1", "c-low", 1, now)

	res, err := f.resolver.Resolve(context.Background(), "s1", now)
	require.NoError(err)
	require.NotNil(res.Campaign)
	require.Equal("c-high", res.Campaign.ID)
}

func TestResolveTieBreaksOnAssignedAtThenID(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()
	now := time.Now().UTC()

	f.addProvider("p1", true)
	f.addCampaign("c1", "p1", true)
	f.addCampaign("c2", "p1", true)
	f.addSlot("s1", true)

	// Same priority, newer assignment wins.
	f.addAssignment("a1", "s1", "c1", 5, now.Add(-time.Hour))
	f.addAssignment("a2", "s1", "c2", 5, now)

	res, err := f.resolver.Resolve(context.Background(), "s1", now)
	require.NoError(err)
	require.Equal("c2", res.Campaign.ID)

	// Same priority and timestamp, highest id wins so the pick is stable.
	f2 := newResolverFixture()
	f2.addProvider("p1", true)
	f2.addCampaign("c1", "p1", true)
	f2.addCampaign("c2", "p1", true)
	f2.addSlot("s1", true)
	f2.addAssignment("a-zz", "s1", "c1", 5, now)
	f2.addAssignment("a-aa", "s1", "c2", 5, now)

	for i := 0; i < 10; i++ {
		res, err := f2.resolver.Resolve(context.Background(), "s1", now)
		require.NoError(err)
		require.Equal("c1", res.Campaign.ID)
	}
}

func TestResolveScheduleBoundsInclusive(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

	f.addProvider("p1", true)
	_ = f.campaigns.Upsert(context.Background(), &models.Campaign{
		ID: "c1", ProviderID: "p1", Name: "scheduled",
		AdType: models.AdTypeBanner, IsActive: true,
		StartDate: &start, EndDate: &end,
	})
	f.addSlot("s1", true)
	f.addAssignment("a1", "s1", "c1", 1, start)

	cases := []struct {
		at   time.Time
		fill bool
	}{
		{start.Add(-time.Second), false},
		{start, true},
		{end, true},
		{end.Add(time.Second), false},
	}
	for _, tc := range cases {
		res, err := f.resolver.Resolve(context.Background(), "s1", tc.at)
		require.NoError(err)
		if tc.fill {
			require.NotNil(res.Campaign, "at %s", tc.at)
		} else {
			require.Nil(res.Campaign, "at %s", tc.at)
		}
	}
}

func TestResolveSkipsDeadCandidates(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()
	now := time.Now().UTC()

	f.addSlot("s1", true)

	// Inactive assignment.
	f.addProvider("p1", true)
	f.addCampaign("c1", "p1", true)
	_ = f.assignments.Upsert(context.Background(), &models.SlotAssignment{
		ID: "a1", SlotID: "s1", CampaignID: "c1", Priority: 100, IsActive: false, AssignedAt: now,
	})

	// Inactive campaign.
	f.addCampaign("c2", "p1", false)
	f.addAssignment("a2", "s1", "c2", 90, now)

	// Inactive provider.
	f.addProvider("p2", false)
	f.addCampaign("c3", "p2", true)
	f.addAssignment("a3", "s1", "c3", 80, now)

	// Campaign row missing entirely.
	f.addAssignment("a4", "s1", "ghost", 70, now)

	// The only live candidate, lowest priority of all.
	f.addCampaign("c4", "p1", true)
	f.addAssignment("a5", "s1", "c4", 1, now)

	res, err := f.resolver.Resolve(context.Background(), "s1", now)
	require.NoError(err)
	require.NotNil(res.Campaign)
	require.Equal("c4", res.Campaign.ID)
}

func TestResolveConcurrentWithDeactivation(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()
	now := time.Now().UTC()

	f.addProvider("p1", true)
	f.addCampaign("c1", "p1", true)
	f.addSlot("s1", true)
	f.addAssignment("a1", "s1", "c1", 1, now)

	providerSvc := NewProviderService(f.providers)

	// Resolvers read IsActive while the provider flips state; the store
	// hands out copies, so the race detector must stay quiet and every
	// resolve sees a consistent row.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = providerSvc.DeactivateProvider(context.Background(), "p1")
			f.addProvider("p1", true)
		}
	}()

	for i := 0; i < 200; i++ {
		res, err := f.resolver.Resolve(context.Background(), "s1", now)
		require.NoError(err)
		if res.Campaign != nil {
			require.Equal("c1", res.Campaign.ID)
		}
	}
	<-done
}

func TestResolveByPlacement(t *testing.T) {
	require := require.New(t)
	f := newResolverFixture()
	now := time.Now().UTC()

	f.addProvider("p1", true)
	f.addCampaign("c1", "p1", true)
	f.addSlot("s1", true)
	f.addAssignment("a1", "s1", "c1", 1, now)

	res, err := f.resolver.ResolveByPlacement(context.Background(), "sidebar", "tools", now)
	require.NoError(err)
	require.NotNil(res.Slot)
	require.Equal("c1", res.Campaign.ID)

	res, err = f.resolver.ResolveByPlacement(context.Background(), "footer", "tools", now)
	require.NoError(err)
	require.Nil(res.Slot)
	require.Nil(res.Campaign)
}
