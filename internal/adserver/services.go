package adserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/adserver/internal/models"
	"github.com/radiusdt/adserver/internal/storage"
)

// ProviderService provides CRUD operations over ad providers. Providers are
// master data: Deactivate is the only removal path, so campaigns and
// historical views never dangle.
type ProviderService struct {
	repo storage.ProviderRepo
}

// NewProviderService constructs a ProviderService backed by the given repo.
func NewProviderService(repo storage.ProviderRepo) *ProviderService {
	return &ProviderService{repo: repo}
}

// ListProviders returns all providers.
func (s *ProviderService) ListProviders(ctx context.Context) ([]*models.Provider, error) {
	list, err := s.repo.ListAll(ctx)
	return list, storageErr(err)
}

// GetProvider returns a provider by ID.
func (s *ProviderService) GetProvider(ctx context.Context, id string) (*models.Provider, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// UpsertProvider validates the provider, enforces name uniqueness, assigns
// an id if missing and saves it.
func (s *ProviderService) UpsertProvider(ctx context.Context, p *models.Provider) error {
	if err := p.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	existing, err := s.repo.GetByName(ctx, p.Name)
	if err != nil {
		return storageErr(err)
	}
	if existing != nil && existing.ID != p.ID {
		return conflictf("provider name %q already in use", p.Name)
	}

	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return storageErr(s.repo.Upsert(ctx, p))
}

// DeactivateProvider clears the active flag. Campaigns owned by the
// provider keep their rows but stop resolving.
func (s *ProviderService) DeactivateProvider(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if p == nil {
		return ErrNotFound
	}
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	return storageErr(s.repo.Upsert(ctx, p))
}

// CampaignService provides CRUD operations over campaigns.
type CampaignService struct {
	repo      storage.CampaignRepo
	providers storage.ProviderRepo
}

// NewCampaignService constructs a CampaignService backed by the given repos.
func NewCampaignService(repo storage.CampaignRepo, providers storage.ProviderRepo) *CampaignService {
	return &CampaignService{repo: repo, providers: providers}
}

// ListCampaigns returns all campaigns, optionally filtered by provider.
func (s *CampaignService) ListCampaigns(ctx context.Context, providerID string) ([]*models.Campaign, error) {
	var (
		list []*models.Campaign
		err  error
	)
	if providerID != "" {
		list, err = s.repo.ListByProvider(ctx, providerID)
	} else {
		list, err = s.repo.ListAll(ctx)
	}
	return list, storageErr(err)
}

// GetCampaign returns a campaign by ID.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// UpsertCampaign validates the campaign, checks that the referenced
// provider exists, populates timestamps and saves it.
func (s *CampaignService) UpsertCampaign(ctx context.Context, c *models.Campaign) error {
	if err := c.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	provider, err := s.providers.GetByID(ctx, c.ProviderID)
	if err != nil {
		return storageErr(err)
	}
	if provider == nil {
		return validationf("provider %s does not exist", c.ProviderID)
	}

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return storageErr(s.repo.Upsert(ctx, c))
}

// DeactivateCampaign clears the active flag without deleting the row.
func (s *CampaignService) DeactivateCampaign(ctx context.Context, id string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if c == nil {
		return ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
	return storageErr(s.repo.Upsert(ctx, c))
}

// SlotService provides CRUD operations over slots.
type SlotService struct {
	repo storage.SlotRepo
}

// NewSlotService constructs a SlotService backed by the given repo.
func NewSlotService(repo storage.SlotRepo) *SlotService {
	return &SlotService{repo: repo}
}

// ListSlots returns all slots.
func (s *SlotService) ListSlots(ctx context.Context) ([]*models.Slot, error) {
	list, err := s.repo.ListAll(ctx)
	return list, storageErr(err)
}

// GetSlot returns a slot by ID.
func (s *SlotService) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	sl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if sl == nil {
		return nil, ErrNotFound
	}
	return sl, nil
}

// UpsertSlot validates the slot, enforces (position, page) uniqueness,
// assigns an id if missing and saves it.
func (s *SlotService) UpsertSlot(ctx context.Context, sl *models.Slot) error {
	if err := sl.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	existing, err := s.repo.GetByPlacement(ctx, sl.Position, sl.Page)
	if err != nil {
		return storageErr(err)
	}
	if existing != nil && existing.ID != sl.ID {
		return conflictf("slot %s/%s already exists", sl.Page, sl.Position)
	}

	now := time.Now().UTC()
	if sl.ID == "" {
		sl.ID = uuid.NewString()
	}
	if sl.CreatedAt.IsZero() {
		sl.CreatedAt = now
	}
	sl.UpdatedAt = now
	return storageErr(s.repo.Upsert(ctx, sl))
}

// DeactivateSlot clears the active flag; the resolver then treats the slot
// as unresolvable.
func (s *SlotService) DeactivateSlot(ctx context.Context, id string) error {
	sl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if sl == nil {
		return ErrNotFound
	}
	sl.IsActive = false
	sl.UpdatedAt = time.Now().UTC()
	return storageErr(s.repo.Upsert(ctx, sl))
}

// AssignmentService provides CRUD operations over slot assignments.
type AssignmentService struct {
	repo      storage.AssignmentRepo
	slots     storage.SlotRepo
	campaigns storage.CampaignRepo
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo storage.AssignmentRepo, slots storage.SlotRepo, campaigns storage.CampaignRepo) *AssignmentService {
	return &AssignmentService{repo: repo, slots: slots, campaigns: campaigns}
}

// ListAssignments returns all assignments, optionally filtered by slot.
func (s *AssignmentService) ListAssignments(ctx context.Context, slotID string) ([]*models.SlotAssignment, error) {
	var (
		list []*models.SlotAssignment
		err  error
	)
	if slotID != "" {
		list, err = s.repo.ListBySlot(ctx, slotID)
	} else {
		list, err = s.repo.ListAll(ctx)
	}
	return list, storageErr(err)
}

// GetAssignment returns an assignment by ID.
func (s *AssignmentService) GetAssignment(ctx context.Context, id string) (*models.SlotAssignment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// UpsertAssignment validates the link, checks both ends exist, stamps
// AssignedAt on creation and saves it.
func (s *AssignmentService) UpsertAssignment(ctx context.Context, a *models.SlotAssignment) error {
	if err := a.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	slot, err := s.slots.GetByID(ctx, a.SlotID)
	if err != nil {
		return storageErr(err)
	}
	if slot == nil {
		return validationf("slot %s does not exist", a.SlotID)
	}

	campaign, err := s.campaigns.GetByID(ctx, a.CampaignID)
	if err != nil {
		return storageErr(err)
	}
	if campaign == nil {
		return validationf("campaign %s does not exist", a.CampaignID)
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	return storageErr(s.repo.Upsert(ctx, a))
}

// DeleteAssignment removes an assignment. Assignments are the one entity
// with a hard delete: they are configuration links, not master data.
func (s *AssignmentService) DeleteAssignment(ctx context.Context, id string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if a == nil {
		return ErrNotFound
	}
	return storageErr(s.repo.Delete(ctx, id))
}
