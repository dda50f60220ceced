package adserver

import (
	"context"
	"time"

	"github.com/radiusdt/adserver/internal/models"
	"github.com/radiusdt/adserver/internal/storage"
)

// ResolveResult is what the client widget renders. Campaign is nil on
// no-fill; Slot is nil when the slot itself did not resolve. A nil campaign
// with a non-nil slot may still serve the slot's legacy direct AdCode.
type ResolveResult struct {
	Slot     *models.Slot     `json:"slot"`
	Campaign *models.Campaign `json:"campaign"`
}

// ResolverService maps a slot to the winning live campaign. It is a pure
// read over slowly-changing configuration and is called on every page view,
// so it must never turn a miss into an error.
type ResolverService struct {
	slots       storage.SlotRepo
	assignments storage.AssignmentRepo
	campaigns   storage.CampaignRepo
	providers   storage.ProviderRepo
}

// NewResolverService constructs a ResolverService over the given repos.
func NewResolverService(
	slots storage.SlotRepo,
	assignments storage.AssignmentRepo,
	campaigns storage.CampaignRepo,
	providers storage.ProviderRepo,
) *ResolverService {
	return &ResolverService{
		slots:       slots,
		assignments: assignments,
		campaigns:   campaigns,
		providers:   providers,
	}
}

// Resolve returns the slot and the winning campaign for slotID at time now.
// A missing or inactive slot yields {nil, nil}; a slot with no live
// candidate yields {slot, nil}. Only storage failures return an error.
func (s *ResolverService) Resolve(ctx context.Context, slotID string, now time.Time) (*ResolveResult, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.resolveSlot(ctx, slot, now)
}

// ResolveByPlacement resolves a slot by its (position, page) identity.
func (s *ResolverService) ResolveByPlacement(ctx context.Context, position, page string, now time.Time) (*ResolveResult, error) {
	slot, err := s.slots.GetByPlacement(ctx, position, page)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.resolveSlot(ctx, slot, now)
}

func (s *ResolverService) resolveSlot(ctx context.Context, slot *models.Slot, now time.Time) (*ResolveResult, error) {
	if slot == nil || !slot.IsActive {
		return &ResolveResult{}, nil
	}

	assignments, err := s.assignments.ListBySlot(ctx, slot.ID)
	if err != nil {
		return nil, storageErr(err)
	}

	var (
		best         *models.SlotAssignment
		bestCampaign *models.Campaign
	)
	for _, a := range assignments {
		if !a.IsActive {
			continue
		}

		campaign, err := s.campaigns.GetByID(ctx, a.CampaignID)
		if err != nil {
			return nil, storageErr(err)
		}
		if !campaign.LiveAt(now) {
			continue
		}

		provider, err := s.providers.GetByID(ctx, campaign.ProviderID)
		if err != nil {
			return nil, storageErr(err)
		}
		if provider == nil || !provider.IsActive {
			continue
		}

		if best == nil || beats(a, best) {
			best = a
			bestCampaign = campaign
		}
	}

	return &ResolveResult{Slot: slot, Campaign: bestCampaign}, nil
}

// beats reports whether a wins over b: priority descending, then AssignedAt
// descending, then ID descending. The order is total, so repeated resolves
// over unchanged data always pick the same assignment.
func beats(a, b *models.SlotAssignment) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.AssignedAt.Equal(b.AssignedAt) {
		return a.AssignedAt.After(b.AssignedAt)
	}
	return a.ID > b.ID
}
